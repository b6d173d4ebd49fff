package critique

import (
	"math"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// normalizeStdDevThreshold is the population standard deviation above
// which a round's critique scores are remapped to a common center.
const normalizeStdDevThreshold = 15.0

// NormalizeScores compresses inter-model scoring bias across one round's
// critiques. When the population standard deviation exceeds the
// threshold, every score is remapped to 70 + 15z (z being that score's
// z-score), clamped to [0,100]; relative ranking is preserved. Scores
// are modified in place.
func NormalizeScores(critiques []debate.Critique) {
	if len(critiques) < 2 {
		return
	}

	var sum float64
	for _, c := range critiques {
		sum += float64(c.Score)
	}
	mean := sum / float64(len(critiques))

	var variance float64
	for _, c := range critiques {
		d := float64(c.Score) - mean
		variance += d * d
	}
	variance /= float64(len(critiques))
	stdDev := math.Sqrt(variance)

	if stdDev <= normalizeStdDevThreshold {
		return
	}

	for i := range critiques {
		z := (float64(critiques[i].Score) - mean) / stdDev
		critiques[i].Score = debate.ClampScore(int(math.Round(70 + 15*z)))
	}
}
