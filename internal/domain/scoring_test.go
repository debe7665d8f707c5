package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		baseline  float64
		wantScore float64
		wantTier  BadgeTier
	}{
		{"zero emissions full reduction", 0, 100, 1000, BadgeGold},
		{"gold boundary inclusive", 50, 100, 500, BadgeGold},
		{"silver boundary inclusive", 70, 100, 300, BadgeSilver},
		{"bronze boundary inclusive", 90, 100, 100, BadgeBronze},
		{"small reduction no badge", 95, 100, 50, BadgeNone},
		{"increase over baseline no badge", 120, 100, 0, BadgeNone},
		{"zero baseline guards division", 5, 0, 950, BadgeNone},
		{"zero baseline zero current", 0, 0, 1000, BadgeNone},
		{"score clamped at zero", 150, 100, 0, BadgeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Score(tt.current, tt.baseline)
			require.NoError(t, err)
			require.Equal(t, tt.wantScore, result.GreenScore)
			require.Equal(t, tt.wantTier, result.Tier)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	first, err := Score(42.5, 88.0)
	require.NoError(t, err)
	second, err := Score(42.5, 88.0)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScoreNegativeBaseline(t *testing.T) {
	_, err := Score(10, -1)
	require.ErrorIs(t, err, ErrInvalidBaseline)
}

func TestScoreReductionReported(t *testing.T) {
	result, err := Score(70, 100)
	require.NoError(t, err)
	require.InDelta(t, 0.3, result.Reduction, 1e-9)

	result, err = Score(10, 0)
	require.NoError(t, err)
	require.Zero(t, result.Reduction)
}

func TestGreenScoreClamping(t *testing.T) {
	require.Equal(t, 1000.0, GreenScore(0))
	require.Equal(t, 0.0, GreenScore(100))
	require.Equal(t, 0.0, GreenScore(250))
	require.Equal(t, 976.0, GreenScore(2.4))
}
