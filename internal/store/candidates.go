// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusgraph/affinity/internal/metrics"
)

// GetCandidates returns the filtered candidate pool, ordered by
// completeness then recency, capped at MaxCandidatePool rows.
func (db *DB) GetCandidates(ctx context.Context, filter CandidateFilter) ([]CandidateRow, error) {
	start := time.Now()
	query, args := buildCandidateQuery(filter, time.Now())

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordStoreQuery("get_candidates", start, err)
		return nil, fmt.Errorf("query candidates for %s: %w", filter.RequesterID, err)
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			metrics.RecordStoreQuery("get_candidates", start, err)
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, CandidateRow{Profile: *p})
	}
	err = rows.Err()
	metrics.RecordStoreQuery("get_candidates", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// buildCandidateQuery assembles the pool query. The requester and every
// excluded ID are always filtered out; the remaining clauses are applied
// only when the filter sets them.
func buildCandidateQuery(filter CandidateFilter, now time.Time) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT ` + profileColumns + ` FROM users WHERE id <> ?`)
	args = append(args, filter.RequesterID)

	if len(filter.ExcludeIDs) > 0 {
		sb.WriteString(` AND id NOT IN (` + placeholders(len(filter.ExcludeIDs)) + `)`)
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	if filter.SameUniversityID != "" {
		sb.WriteString(` AND university_id = ?`)
		args = append(args, filter.SameUniversityID)
	}

	// Private profiles never enter anyone's pool.
	sb.WriteString(` AND privacy <> ?`)
	args = append(args, string(PrivacyPrivate))

	if len(filter.IncludeTypes) > 0 {
		sb.WriteString(` AND user_type IN (` + placeholders(len(filter.IncludeTypes)) + `)`)
		for _, t := range filter.IncludeTypes {
			args = append(args, t)
		}
	}
	if len(filter.ExcludeTypes) > 0 {
		sb.WriteString(` AND user_type NOT IN (` + placeholders(len(filter.ExcludeTypes)) + `)`)
		for _, t := range filter.ExcludeTypes {
			args = append(args, t)
		}
	}

	if filter.MaxAgeDays > 0 {
		sb.WriteString(` AND last_active >= ?`)
		args = append(args, now.AddDate(0, 0, -filter.MaxAgeDays))
	}

	if filter.MinCompleteness > 0 {
		sb.WriteString(` AND completeness >= ?`)
		args = append(args, filter.MinCompleteness)
	}

	sb.WriteString(` ORDER BY completeness DESC, last_active DESC`)

	limit := filter.Limit
	if limit <= 0 || limit > MaxCandidatePool {
		limit = MaxCandidatePool
	}
	sb.WriteString(fmt.Sprintf(` LIMIT %d`, limit))

	return sb.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
