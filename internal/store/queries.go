// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/campusgraph/affinity/internal/metrics"
)

// profileColumns is the select list shared by GetUserProfile and the
// candidate pool query. Keep in sync with scanProfile.
const profileColumns = `id, display_name, user_type, privacy, completeness,
	latitude, longitude, university_json, interests_json, last_active, created_at`

// scanProfile decodes one users row into a typed Profile.
func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	var (
		p              Profile
		privacy        string
		universityJSON string
		interestsJSON  string
		lastActive     sql.NullTime
		createdAt      sql.NullTime
	)
	err := row.Scan(&p.ID, &p.DisplayName, &p.UserType, &privacy, &p.Completeness,
		&p.Location.Latitude, &p.Location.Longitude,
		&universityJSON, &interestsJSON, &lastActive, &createdAt)
	if err != nil {
		return nil, err
	}

	p.Privacy = PrivacyLevel(privacy)
	if !p.Privacy.Valid() {
		p.Privacy = PrivacyPublic
	}
	if lastActive.Valid {
		p.LastActive = lastActive.Time
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}

	if err := json.Unmarshal([]byte(universityJSON), &p.University); err != nil {
		return nil, fmt.Errorf("decode university profile for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(interestsJSON), &p.Interests); err != nil {
		return nil, fmt.Errorf("decode interest profile for %s: %w", p.ID, err)
	}

	return &p, nil
}

// GetUserProfile returns a user's profile, or ErrNotFound.
func (db *DB) GetUserProfile(ctx context.Context, id string) (*Profile, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_user_profile", start, nil)
		return nil, ErrNotFound
	}
	metrics.RecordStoreQuery("get_user_profile", start, err)
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", id, err)
	}
	return p, nil
}

// GetBlockedUsers returns IDs blocked in either direction.
func (db *DB) GetBlockedUsers(ctx context.Context, id string) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT blocked_id FROM blocked_users WHERE user_id = ?
		 UNION
		 SELECT user_id FROM blocked_users WHERE blocked_id = ?`, id, id)
	if err != nil {
		metrics.RecordStoreQuery("get_blocked_users", start, err)
		return nil, fmt.Errorf("query blocked users for %s: %w", id, err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	metrics.RecordStoreQuery("get_blocked_users", start, err)
	return ids, err
}

// GetExistingConnections returns IDs the user is already connected to.
func (db *DB) GetExistingConnections(ctx context.Context, id string) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT peer_id FROM connections WHERE user_id = ?`, id)
	if err != nil {
		metrics.RecordStoreQuery("get_connections", start, err)
		return nil, fmt.Errorf("query connections for %s: %w", id, err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	metrics.RecordStoreQuery("get_connections", start, err)
	return ids, err
}

// GetMutualConnections returns IDs connected to both users.
func (db *DB) GetMutualConnections(ctx context.Context, a, b string) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT x.peer_id
		 FROM connections x
		 JOIN connections y ON x.peer_id = y.peer_id
		 WHERE x.user_id = ? AND y.user_id = ?`, a, b)
	if err != nil {
		metrics.RecordStoreQuery("get_mutual_connections", start, err)
		return nil, fmt.Errorf("query mutual connections %s/%s: %w", a, b, err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	metrics.RecordStoreQuery("get_mutual_connections", start, err)
	return ids, err
}

// GetUserInteractions returns interactions between two users in either
// direction, most recent first.
func (db *DB) GetUserInteractions(ctx context.Context, a, b string) ([]Interaction, error) {
	return db.queryInteractions(ctx, "get_user_interactions",
		`SELECT interaction_type, occurred_at FROM interactions
		 WHERE (actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)
		 ORDER BY occurred_at DESC`, a, b, b, a)
}

// GetConnectionInteractions returns interactions between a mutual
// connection and one endpoint user, most recent first.
func (db *DB) GetConnectionInteractions(ctx context.Context, connectionID, userID string) ([]Interaction, error) {
	return db.queryInteractions(ctx, "get_connection_interactions",
		`SELECT interaction_type, occurred_at FROM interactions
		 WHERE (actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)
		 ORDER BY occurred_at DESC`, connectionID, userID, userID, connectionID)
}

func (db *DB) queryInteractions(ctx context.Context, op, query string, args ...any) ([]Interaction, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordStoreQuery(op, start, err)
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.Type, &it.OccurredAt); err != nil {
			metrics.RecordStoreQuery(op, start, err)
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, it)
	}
	err = rows.Err()
	metrics.RecordStoreQuery(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

// GetUserEngagementPattern returns a user's activity histograms, or
// ErrNotFound when no history exists.
func (db *DB) GetUserEngagementPattern(ctx context.Context, id string) (*EngagementPattern, error) {
	start := time.Now()
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT pattern_json FROM engagement_patterns WHERE user_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_engagement_pattern", start, nil)
		return nil, ErrNotFound
	}
	metrics.RecordStoreQuery("get_engagement_pattern", start, err)
	if err != nil {
		return nil, fmt.Errorf("query engagement pattern for %s: %w", id, err)
	}

	var p EngagementPattern
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode engagement pattern for %s: %w", id, err)
	}
	p.UserID = id
	return &p, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return out, nil
}
