// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"math"
	"time"
)

// Clamp01 clamps v to [0,1]. Every sub-score entering a weighted sum
// passes through this first.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Jaccard returns |a ∩ b| / |a ∪ b| over two string sets.
// Two empty sets yield 0, not 1.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for s := range setA {
		union[s] = struct{}{}
	}
	intersection := 0
	for _, s := range b {
		if _, seen := union[s]; !seen {
			union[s] = struct{}{}
			continue
		}
		if _, inA := setA[s]; inA {
			// Count each shared element once even if b repeats it.
			delete(setA, s)
			intersection++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

// Intersect returns the elements present in both slices, preserving the
// order of a and dropping duplicates.
func Intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := inB[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Cosine returns the cosine similarity of two dense vectors of equal
// length. A zero vector on either side yields 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SparseCosine returns the cosine similarity of two sparse vectors keyed
// by string, computed over the union of keys.
func SparseCosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DecayFactor maps the age of an interaction to a weight. Buckets follow
// engagement half-life observed in campus social graphs: within a week
// counts fully, two years out barely registers.
func DecayFactor(occurred, now time.Time) float64 {
	days := now.Sub(occurred).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.9
	case days <= 90:
		return 0.7
	case days <= 365:
		return 0.5
	case days <= 730:
		return 0.3
	default:
		return 0.1
	}
}
