package devmock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupQuestions(t *testing.T) {
	questions := []Question{
		{Text: "What is a goroutine?"},
		{Text: "What does defer do?"},
		{Text: "  what is a   GOROUTINE "},
		{Text: "What is a goroutine pool?"},
	}

	got := DedupQuestions(questions)
	assert.Len(t, got, 3)
	assert.Equal(t, "What is a goroutine?", got[0].Text)
	assert.Equal(t, "What does defer do?", got[1].Text)
	assert.Equal(t, "What is a goroutine pool?", got[2].Text)
}

func TestQuestionDedup_Check(t *testing.T) {
	qd := NewQuestionDedup()
	assert.False(t, qd.Check(Question{Text: "One?"}).IsDuplicate)
	assert.False(t, qd.Check(Question{Text: "Two?"}).IsDuplicate)

	result := qd.Check(Question{Text: "two"})
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, 1, result.DuplicateOf)
}

func TestNormalizePrompt(t *testing.T) {
	assert.Equal(t, "what is a goroutine", normalizePrompt("What is a goroutine?"))
	assert.Equal(t, "a b", normalizePrompt("  A,\n\tb. "))
}
