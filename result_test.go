package devmock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewResult(t *testing.T) {
	tests := []struct {
		score, total int
		want         Result
	}{
		{0, 0, Result{Score: 0, Total: 0, Percentage: 0, Tier: TierKeepLearning}},
		{2, 3, Result{Score: 2, Total: 3, Percentage: 66, Tier: TierGood}},
		{4, 5, Result{Score: 4, Total: 5, Percentage: 80, Tier: TierExcellent}},
		{5, 5, Result{Score: 5, Total: 5, Percentage: 100, Tier: TierExcellent}},
		{1, 2, Result{Score: 1, Total: 2, Percentage: 50, Tier: TierGood}},
		{2, 5, Result{Score: 2, Total: 5, Percentage: 40, Tier: TierKeepLearning}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NewResult(tt.score, tt.total), "score %d of %d", tt.score, tt.total)
	}
}

func TestTierFor_Boundaries(t *testing.T) {
	assert.Equal(t, TierKeepLearning, TierFor(49))
	assert.Equal(t, TierGood, TierFor(50))
	assert.Equal(t, TierGood, TierFor(79))
	assert.Equal(t, TierExcellent, TierFor(80))
}

func TestTier_Feedback(t *testing.T) {
	assert.Equal(t, "Excellent! You're ready for the real thing.", TierExcellent.Feedback())
	assert.Equal(t, "Keep learning! Practice makes perfect.", TierKeepLearning.Feedback())
}
