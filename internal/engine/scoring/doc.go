// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

// Package scoring implements the individual signal scorers combined by the
// recommendation engine: university affinity, mutual-connection strength,
// interest similarity, and the ancillary bonus factors (engagement,
// geography, recency, profile completion, social history).
//
// Every scorer returns raw factor values in [0,1]; weighting and
// aggregation into a final 0-100 score happen in the engine package.
package scoring
