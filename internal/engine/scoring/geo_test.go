// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"math"
	"testing"

	"github.com/campusgraph/affinity/internal/store"
)

func TestDistanceStep(t *testing.T) {
	tests := []struct {
		km   float64
		want float64
	}{
		{0.5, 1.0},
		{5, 0.8},
		{40, 0.6},
		{150, 0.4},
		{500, 0.2},
		{5000, 0.1},
	}
	for _, tt := range tests {
		if got := distanceStep(tt.km); got != tt.want {
			t.Errorf("distanceStep(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}

func TestHaversineKm(t *testing.T) {
	berlin := store.Location{Latitude: 52.52, Longitude: 13.405}
	munich := store.Location{Latitude: 48.1374, Longitude: 11.5755}

	if d := HaversineKm(berlin, berlin); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}

	// Berlin-Munich is roughly 504 km great-circle.
	d := HaversineKm(berlin, munich)
	if math.Abs(d-504) > 5 {
		t.Errorf("Berlin-Munich = %v km, want ~504", d)
	}
	if HaversineKm(munich, berlin) != d {
		t.Error("distance must be symmetric")
	}
}

func TestGeographyScore(t *testing.T) {
	berlin := store.Location{Latitude: 52.52, Longitude: 13.405}
	munich := store.Location{Latitude: 48.1374, Longitude: 11.5755}

	if got := GeographyScore(berlin, berlin); got != 1.0 {
		t.Errorf("same point = %v, want 1.0", got)
	}
	if got := GeographyScore(berlin, munich); got != 0.2 {
		t.Errorf("~504km = %v, want 0.2", got)
	}
	if got := GeographyScore(store.Location{}, berlin); got != 0.1 {
		t.Errorf("unset location = %v, want 0.1", got)
	}
}
