// Affinity - Campus Friend Recommendation Engine
// Copyright 2026 Campusgraph Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusgraph/affinity

package scoring

import (
	"math"

	"github.com/campusgraph/affinity/internal/store"
)

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(a, b store.Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// GeographyScore maps the distance between two locations to a step score.
// An unset location on either side scores the bottom bucket.
func GeographyScore(a, b store.Location) float64 {
	if a.Zero() || b.Zero() {
		return 0.1
	}
	return distanceStep(HaversineKm(a, b))
}

func distanceStep(km float64) float64 {
	switch {
	case km < 1:
		return 1.0
	case km < 10:
		return 0.8
	case km < 50:
		return 0.6
	case km < 200:
		return 0.4
	case km < 1000:
		return 0.2
	default:
		return 0.1
	}
}
