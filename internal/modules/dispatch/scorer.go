// README: Driver scoring for automatic assignment.
package dispatch

import (
	"math"
	"sort"

	"nosh/internal/modules/driver"
	"nosh/internal/modules/location"
	"nosh/internal/types"
)

// baseScore is the distance component at zero kilometres. A driver loses
// points linearly with distance and hits zero at maxDistanceKm; rating adds
// up to 50 points at a perfect 5.0.
const (
	baseScore        = 100.0
	ratingMultiplier = 10.0
)

type scoredCandidate struct {
	Driver     driver.Driver
	Score      float64
	DistanceKm float64
}

// scoreCandidates computes a score for every candidate and returns them in
// descending score order. The sort is stable: ties keep the fetched order, so
// the first-listed driver wins. Candidates with no known location score zero
// at infinite distance; they stay in the slice so an all-unknown pool is
// detected as "no suitable driver" rather than "no drivers".
func scoreCandidates(target types.Point, candidates []driver.Driver, maxDistanceKm float64) []scoredCandidate {
	pointsPerKm := baseScore / maxDistanceKm
	out := make([]scoredCandidate, 0, len(candidates))
	for _, d := range candidates {
		if d.Location == nil {
			out = append(out, scoredCandidate{Driver: d, Score: 0, DistanceKm: math.Inf(1)})
			continue
		}
		dist := location.DistanceKm(target, *d.Location)
		score := math.Max(0, baseScore-dist*pointsPerKm) + ratingOf(d)*ratingMultiplier
		out = append(out, scoredCandidate{Driver: d, Score: score, DistanceKm: dist})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func ratingOf(d driver.Driver) float64 {
	if d.Rating == nil {
		return 0
	}
	return *d.Rating
}
