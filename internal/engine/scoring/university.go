// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"time"

	"github.com/campusgraph/affinity/internal/store"
)

// University sub-factor weights. Department, major, and year only count
// when the candidate shares the requester's institution; geography,
// alumni, and ranking proximity are evaluated unconditionally.
const (
	univWeightSame       = 0.40
	univWeightDepartment = 0.25
	univWeightMajor      = 0.10
	univWeightYear       = 0.15
	univWeightAlumni     = 0.05
	univWeightGeography  = 0.03
	univWeightUnivRank   = 0.01
	univWeightDeptRank   = 0.01
)

// Multiplicative bonuses, each applied at most once.
const (
	bonusTopTier        = 1.2  // candidate institution globally ranked <= 100
	bonusResearch       = 1.1  // research institution
	bonusSameRegion     = 1.05 // same region/state
	bonusRecentGraduate = 1.1  // candidate graduated within the last 2 years
	bonusCurrentStudent = 1.15 // candidate currently enrolled
)

// topTierRank is the global-rank cutoff for the top-tier bonus.
const topTierRank = 100

// UniversityResult carries the institutional affinity score and its raw
// sub-factors, each in [0,1] before weighting.
type UniversityResult struct {
	Value float64

	SameUniversity float64
	Department     float64
	Major          float64
	YearProximity  float64
	Alumni         float64
	Geography      float64
	UniversityRank float64
	DepartmentRank float64

	// BonusMultiplier is the product of the applied multiplicative
	// bonuses, 1.0 when none applied.
	BonusMultiplier float64
}

// UniversityScorer scores institutional overlap between two users.
//
// The weighted sub-factor sum is multiplied by the applicable bonuses and
// clamped to [0,1]:
//
//	score = clamp(Σ(subfactor_i × w_i) × Π(bonus_j))
type UniversityScorer struct {
	// DeptRank resolves a department's rank within its field. Optional;
	// when nil the department-ranking sub-factor contributes zero.
	DeptRank func(universityID, department string) (int, bool)
}

// NewUniversityScorer creates a university affinity scorer.
func NewUniversityScorer() *UniversityScorer {
	return &UniversityScorer{}
}

// Score computes institutional affinity between requester a and
// candidate b at the given time.
func (s *UniversityScorer) Score(a, b *store.UniversityProfile, now time.Time) UniversityResult {
	r := UniversityResult{BonusMultiplier: 1.0}
	if a == nil || b == nil {
		return r
	}

	sameUniversity := a.UniversityID != "" && a.UniversityID == b.UniversityID
	if sameUniversity {
		r.SameUniversity = 1.0
		if a.Department != "" && a.Department == b.Department {
			r.Department = 1.0
			if a.Major != "" && a.Major == b.Major {
				r.Major = 1.0
			}
		}
		r.YearProximity = yearProximity(a.GraduationYear, b.GraduationYear)
	}

	r.Alumni = alumniScore(a, b, now)
	r.Geography = GeographyScore(a.Location, b.Location)
	if a.GlobalRank > 0 && b.GlobalRank > 0 {
		r.UniversityRank = rankProximity(a.GlobalRank, b.GlobalRank)
	}
	if s.DeptRank != nil && a.Department != "" && b.Department != "" {
		if ra, ok := s.DeptRank(a.UniversityID, a.Department); ok {
			if rb, ok := s.DeptRank(b.UniversityID, b.Department); ok {
				r.DepartmentRank = rankProximity(ra, rb)
			}
		}
	}

	base := r.SameUniversity*univWeightSame +
		r.Department*univWeightDepartment +
		r.Major*univWeightMajor +
		r.YearProximity*univWeightYear +
		r.Alumni*univWeightAlumni +
		r.Geography*univWeightGeography +
		r.UniversityRank*univWeightUnivRank +
		r.DepartmentRank*univWeightDeptRank

	if b.GlobalRank > 0 && b.GlobalRank <= topTierRank {
		r.BonusMultiplier *= bonusTopTier
	}
	if b.ResearchType {
		r.BonusMultiplier *= bonusResearch
	}
	if a.Region != "" && a.Region == b.Region {
		r.BonusMultiplier *= bonusSameRegion
	}
	if recentGraduate(b, now) {
		r.BonusMultiplier *= bonusRecentGraduate
	}
	if b.CurrentStudent {
		r.BonusMultiplier *= bonusCurrentStudent
	}

	r.Value = Clamp01(base * r.BonusMultiplier)
	return r
}

// yearProximity scores graduation-year distance. Unknown years on either
// side score nothing.
func yearProximity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 1.0
	case diff == 1:
		return 0.8
	case diff <= 2:
		return 0.6
	case diff <= 5:
		return 0.4
	default:
		return 0.2
	}
}

// alumniScore applies the alumni-connection heuristic.
func alumniScore(a, b *store.UniversityProfile, now time.Time) float64 {
	aAlum := isAlumni(a, now)
	bAlum := isAlumni(b, now)
	switch {
	case aAlum && bAlum:
		if a.GraduationYear == 0 || b.GraduationYear == 0 {
			return 0.8
		}
		diff := a.GraduationYear - b.GraduationYear
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= 5:
			return 1.0
		case diff <= 10:
			return 0.8
		case diff <= 20:
			return 0.6
		default:
			return 0.4
		}
	case aAlum || bAlum:
		return 0.6
	default:
		return 0.4
	}
}

// isAlumni reports whether a user has graduated: a known graduation year
// strictly before the current year, or an unknown year on a non-student.
func isAlumni(p *store.UniversityProfile, now time.Time) bool {
	if p.GraduationYear > 0 {
		return p.GraduationYear < now.Year()
	}
	return !p.CurrentStudent
}

// recentGraduate reports whether the candidate graduated within the last
// two years.
func recentGraduate(p *store.UniversityProfile, now time.Time) bool {
	if p.GraduationYear == 0 {
		return false
	}
	years := now.Year() - p.GraduationYear
	return years >= 1 && years <= 2
}

// rankProximity scores the distance between two global rankings.
func rankProximity(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 50:
		return 1.0
	case diff <= 100:
		return 0.8
	case diff <= 200:
		return 0.6
	case diff <= 500:
		return 0.4
	default:
		return 0.2
	}
}
