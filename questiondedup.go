package devmock

import (
	"strings"
	"unicode"
)

// QuestionDedup drops questions whose prompt repeats one already accepted.
// Prompts are compared after case folding and with punctuation and repeated
// whitespace removed.
type QuestionDedup struct {
	seen map[string]int
}

// NewQuestionDedup creates an empty deduplicator
func NewQuestionDedup() *QuestionDedup {
	return &QuestionDedup{seen: make(map[string]int)}
}

// DedupResult reports whether a question repeated an earlier one
type DedupResult struct {
	IsDuplicate bool
	// DuplicateOf is the position of the accepted question it repeats
	DuplicateOf int
}

// Check records q if it is new. Accepted questions are numbered in the order
// they were checked.
func (qd *QuestionDedup) Check(q Question) DedupResult {
	key := normalizePrompt(q.Text)
	if i, ok := qd.seen[key]; ok {
		return DedupResult{IsDuplicate: true, DuplicateOf: i}
	}
	qd.seen[key] = len(qd.seen)
	return DedupResult{}
}

// DedupQuestions returns questions without repeats, keeping the first
// occurrence and the original order.
func DedupQuestions(questions []Question) []Question {
	qd := NewQuestionDedup()
	out := make([]Question, 0, len(questions))
	for i, q := range questions {
		if result := qd.Check(q); result.IsDuplicate {
			VerboseLog("Question %d duplicates question %d, dropping", i+1, result.DuplicateOf+1)
			continue
		}
		out = append(out, q)
	}
	return out
}

func normalizePrompt(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return sb.String()
}
