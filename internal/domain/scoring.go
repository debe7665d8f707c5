package domain

import "fmt"

// BadgeTier is an achievement level unlocked by percentage reduction versus a
// baseline. Higher tiers imply the lower thresholds were also met.
type BadgeTier string

const (
	BadgeNone   BadgeTier = ""
	BadgeBronze BadgeTier = "bronze"
	BadgeSilver BadgeTier = "silver"
	BadgeGold   BadgeTier = "gold"
)

// Reduction thresholds, evaluated highest first.
const (
	goldThreshold   = 0.50
	silverThreshold = 0.30
	bronzeThreshold = 0.10
)

// maxGreenScore is the ceiling reached at zero emissions.
const maxGreenScore = 1000

// ScoreResult is the outcome of scoring a CO2e total against a baseline.
type ScoreResult struct {
	GreenScore float64
	Tier       BadgeTier
	// Reduction is the fraction saved versus baseline; zero when the baseline
	// is zero, since no reduction is defined without a reference.
	Reduction float64
}

// GreenScore maps a CO2e total to the gamified score: lower emissions score
// higher, clamped to [0, 1000].
func GreenScore(totalCO2Kg float64) float64 {
	score := maxGreenScore - totalCO2Kg*10
	if score < 0 {
		return 0
	}
	return score
}

// Score computes the green score for the current total and the badge tier
// earned versus the baseline. It is a pure function: identical inputs always
// produce identical outputs. A zero baseline yields no badge (reduction is
// undefined there, treated as 0%); a negative baseline is a caller defect.
func Score(currentCO2Kg, baselineCO2Kg float64) (ScoreResult, error) {
	if baselineCO2Kg < 0 {
		return ScoreResult{}, fmt.Errorf("%w: %f", ErrInvalidBaseline, baselineCO2Kg)
	}

	result := ScoreResult{GreenScore: GreenScore(currentCO2Kg)}
	if baselineCO2Kg == 0 {
		return result, nil
	}

	result.Reduction = (baselineCO2Kg - currentCO2Kg) / baselineCO2Kg
	switch {
	case result.Reduction >= goldThreshold:
		result.Tier = BadgeGold
	case result.Reduction >= silverThreshold:
		result.Tier = BadgeSilver
	case result.Reduction >= bronzeThreshold:
		result.Tier = BadgeBronze
	}
	return result, nil
}
