package staffing

import "math"

// FairnessScore returns a percentage (0-100) representing how evenly work is
// spread over staff. 100 means every load is equal (standard deviation 0); 0
// means the standard deviation reaches the mean.
func FairnessScore(loads []float64) float64 {
	if len(loads) == 0 {
		return 100.0
	}

	var sum float64
	for _, l := range loads {
		sum += l
	}
	if sum == 0 {
		return 100.0 // nobody working is perfectly even
	}

	mean := sum / float64(len(loads))

	var varianceSum float64
	for _, l := range loads {
		diff := l - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(loads)))

	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
