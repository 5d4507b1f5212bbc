// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
)

// EmbeddingDim is the dimensionality of interest embedding vectors.
const EmbeddingDim = 50

// Embeddings is a static per-interest vector table. Vectors are derived
// deterministically from the interest string, so the same interest always
// maps to the same point regardless of process or insertion order. The
// table is populated lazily and safe for concurrent readers.
type Embeddings struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewEmbeddings creates an empty embedding table.
func NewEmbeddings() *Embeddings {
	return &Embeddings{vectors: make(map[string][]float64)}
}

// Vector returns the unit-length embedding for one interest.
func (e *Embeddings) Vector(interest string) []float64 {
	e.mu.RLock()
	v, ok := e.vectors[interest]
	e.mu.RUnlock()
	if ok {
		return v
	}

	v = deriveVector(interest)

	e.mu.Lock()
	// Another goroutine may have raced us here; both derive the same
	// deterministic vector, so last-writer-wins is harmless.
	e.vectors[interest] = v
	e.mu.Unlock()
	return v
}

// ProfileVector sums the embeddings of a user's interests and
// L2-normalizes the result. Returns nil for an empty interest list.
func (e *Embeddings) ProfileVector(interests []string) []float64 {
	if len(interests) == 0 {
		return nil
	}
	sum := make([]float64, EmbeddingDim)
	for _, interest := range interests {
		v := e.Vector(interest)
		for i := range sum {
			sum[i] += v[i]
		}
	}
	var norm float64
	for _, x := range sum {
		norm += x * x
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range sum {
		sum[i] /= norm
	}
	return sum
}

// deriveVector generates a deterministic unit vector from an interest
// name by seeding a PRNG with its FNV-1a hash.
func deriveVector(interest string) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(interest))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // deterministic embedding, not crypto

	v := make([]float64, EmbeddingDim)
	var norm float64
	for i := range v {
		v[i] = rng.Float64()*2 - 1
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
