// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package engine

import "math"

// applyDiversity thins a score-sorted candidate list in one left-to-right
// pass. A candidate is kept while the number of distinct universities
// seen stays below the university cap or its university was already
// admitted, and symmetrically for departments. Selection stops once
// ceil(n x factor) candidates are kept.
//
// Note the caps bound the count of distinct groups, not per-group
// repeats: once a university is in, further candidates from it always
// pass the university check. Changing this to a per-group repeat cap is
// a product decision, not a bug fix; the current behavior is pinned by
// tests.
func applyDiversity(candidates []scoredCandidate, factor float64, universityCap, departmentCap int) []scoredCandidate {
	if len(candidates) == 0 || factor <= 0 {
		return nil
	}

	target := int(math.Ceil(float64(len(candidates)) * factor))
	seenUniversities := make(map[string]struct{})
	seenDepartments := make(map[string]struct{})

	kept := make([]scoredCandidate, 0, target)
	for _, c := range candidates {
		if len(kept) >= target {
			break
		}

		uni := c.row.University.UniversityID
		dept := c.row.University.Department

		_, uniSeen := seenUniversities[uni]
		if !uniSeen && len(seenUniversities) >= universityCap {
			continue
		}
		_, deptSeen := seenDepartments[dept]
		if !deptSeen && len(seenDepartments) >= departmentCap {
			continue
		}

		seenUniversities[uni] = struct{}{}
		seenDepartments[dept] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}
