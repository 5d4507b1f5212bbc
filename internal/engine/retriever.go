// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import (
	"context"

	"github.com/campusgraph/affinity/internal/store"
)

// retrieveCandidates builds the candidate pool for a normalized request.
// The exclusion set merges the request's explicit exclusions with the
// requester's blocked users and existing connections; privacy levels of
// university or friends restrict the pool to the requester's
// institution. Store failures abort the stage with no partial results.
func (e *Engine) retrieveCandidates(ctx context.Context, req Request, requester *store.Profile) ([]store.CandidateRow, error) {
	blocked, err := e.profiles.GetBlockedUsers(ctx, req.RequesterID)
	if err != nil {
		return nil, dataAccess("blocked users", err)
	}
	connections, err := e.profiles.GetExistingConnections(ctx, req.RequesterID)
	if err != nil {
		return nil, dataAccess("existing connections", err)
	}

	filter := store.CandidateFilter{
		RequesterID:     req.RequesterID,
		ExcludeIDs:      mergeExclusions(req.ExcludeIDs, blocked, connections),
		IncludeTypes:    req.IncludeTypes,
		ExcludeTypes:    req.ExcludeTypes,
		MaxAgeDays:      req.MaxAgeDays,
		MinCompleteness: e.GetConfiguration().Parameters.MinCompleteness,
		Limit:           e.GetConfiguration().Parameters.MaxCandidates,
	}

	if req.Privacy == store.PrivacyUniversity || req.Privacy == store.PrivacyFriends {
		filter.SameUniversityID = requester.University.UniversityID
	}

	candidates, err := e.profiles.GetCandidates(ctx, filter)
	if err != nil {
		return nil, dataAccess("candidate retrieval", err)
	}
	return candidates, nil
}

// mergeExclusions deduplicates the union of all exclusion sources.
func mergeExclusions(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
