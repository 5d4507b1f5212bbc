// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import "context"

// ProfileStore is the data contract the engine consumes. The DuckDB
// implementation below satisfies it; tests use in-memory fakes.
type ProfileStore interface {
	// GetUserProfile returns a user's profile, or ErrNotFound.
	GetUserProfile(ctx context.Context, id string) (*Profile, error)

	// GetBlockedUsers returns IDs blocked by or blocking the user.
	GetBlockedUsers(ctx context.Context, id string) ([]string, error)

	// GetExistingConnections returns IDs the user is already connected to.
	GetExistingConnections(ctx context.Context, id string) ([]string, error)

	// GetCandidates returns the filtered, ordered, capped candidate pool.
	GetCandidates(ctx context.Context, filter CandidateFilter) ([]CandidateRow, error)

	// GetMutualConnections returns IDs connected to both users.
	GetMutualConnections(ctx context.Context, a, b string) ([]string, error)

	// GetUserInteractions returns interactions between two users, most
	// recent first.
	GetUserInteractions(ctx context.Context, a, b string) ([]Interaction, error)

	// GetConnectionInteractions returns interactions between a mutual
	// connection and one endpoint user, most recent first.
	GetConnectionInteractions(ctx context.Context, connectionID, userID string) ([]Interaction, error)

	// GetUserEngagementPattern returns a user's activity histograms, or
	// ErrNotFound when no history exists.
	GetUserEngagementPattern(ctx context.Context, id string) (*EngagementPattern, error)

	// GetUniversityRanking returns a university's global rank, or
	// ErrNotFound. Results are cacheable for a day.
	GetUniversityRanking(ctx context.Context, universityID string) (int, error)

	// GetDepartmentRanking returns a department's rank within its field,
	// or ErrNotFound. Results are cacheable for a day.
	GetDepartmentRanking(ctx context.Context, universityID, department string) (int, error)
}
