// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound means the requester's profile does not exist. The
// request aborts and the caller sees a not-found error.
var ErrProfileNotFound = errors.New("requester profile not found")

// DataAccessError wraps a profile store failure during a pipeline stage.
// Fatal for the request; the engine never retries internally.
type DataAccessError struct {
	Stage string
	Err   error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed at %s: %v", e.Stage, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// dataAccess wraps a store error with its pipeline stage.
func dataAccess(stage string, err error) error {
	return &DataAccessError{Stage: stage, Err: err}
}
