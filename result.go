package devmock

// Tier is the qualitative feedback band for a finished interview
type Tier string

const (
	TierExcellent    Tier = "excellent"
	TierGood         Tier = "good"
	TierKeepLearning Tier = "keep_learning"
)

// Result is the final tally of an interview
type Result struct {
	Score      int  `json:"score"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	Tier       Tier `json:"tier"`
}

// NewResult computes the percentage and tier for score out of total
func NewResult(score, total int) Result {
	pct := Percentage(score, total)
	return Result{
		Score:      score,
		Total:      total,
		Percentage: pct,
		Tier:       TierFor(pct),
	}
}

// Percentage returns score/total*100 truncated to an integer, or 0 for an
// empty interview.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return score * 100 / total
}

// TierFor maps a percentage onto a feedback tier
func TierFor(percentage int) Tier {
	switch {
	case percentage >= 80:
		return TierExcellent
	case percentage >= 50:
		return TierGood
	default:
		return TierKeepLearning
	}
}

// Feedback returns the message shown with the final score
func (t Tier) Feedback() string {
	switch t {
	case TierExcellent:
		return "Excellent! You're ready for the real thing."
	case TierGood:
		return "Good job! A bit more practice and you'll be perfect."
	default:
		return "Keep learning! Practice makes perfect."
	}
}
