package devmock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Difficulty is the canonical difficulty of a question or topic. Raw labels
// are mapped onto it once, when a question is ingested.
type Difficulty string

const (
	DifficultyUnspecified Difficulty = ""
	DifficultyEasy        Difficulty = "Easy"
	DifficultyMedium      Difficulty = "Medium"
	DifficultyHard        Difficulty = "Hard"
)

var difficultyAliases = map[string]Difficulty{
	"easy":         DifficultyEasy,
	"junior":       DifficultyEasy,
	"beginner":     DifficultyEasy,
	"medium":       DifficultyMedium,
	"middle":       DifficultyMedium,
	"mid":          DifficultyMedium,
	"intermediate": DifficultyMedium,
	"hard":         DifficultyHard,
	"senior":       DifficultyHard,
	"advanced":     DifficultyHard,
	"expert":       DifficultyHard,
}

// ParseDifficulty canonicalizes a free-form difficulty label. Matching is
// case-insensitive; unknown labels map to DifficultyUnspecified.
func ParseDifficulty(label string) Difficulty {
	if d, ok := difficultyAliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return d
	}
	return DifficultyUnspecified
}

// UnmarshalText canonicalizes labels coming from JSON and YAML documents.
func (d *Difficulty) UnmarshalText(text []byte) error {
	*d = ParseDifficulty(string(text))
	return nil
}

func (d Difficulty) String() string {
	if d == DifficultyUnspecified {
		return "Unspecified"
	}
	return string(d)
}

// Question represents a single multiple choice interview question
type Question struct {
	Text               string     `json:"question" yaml:"question" validate:"required"`
	Options            []string   `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectAnswerIndex int        `json:"correctAnswerIndex" yaml:"correctAnswerIndex" validate:"gte=0"`
	Explanation        string     `json:"explanation" yaml:"explanation"`
	Difficulty         Difficulty `json:"difficulty" yaml:"difficulty"`
}

// Validate checks the question shape: a prompt, at least two options and a
// correct index that points into the options.
func (q *Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return err
	}
	if q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("correct answer index %d out of range for %d options", q.CorrectAnswerIndex, len(q.Options))
	}
	return nil
}

// IsCorrect reports whether option is the correct answer
func (q *Question) IsCorrect(option int) bool {
	return option == q.CorrectAnswerIndex
}

// Topic is one bundled topic of the local questions library
type Topic struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"topicTitle" yaml:"topicTitle"`
	Category       string     `json:"category" yaml:"category"`
	Difficulty     Difficulty `json:"difficulty" yaml:"difficulty"`
	Questions      []string   `json:"questions" yaml:"questions"` // display-only prompts
	AccentColor    string     `json:"accentColor" yaml:"accentColor"`
	Tags           []string   `json:"tags" yaml:"tags"`
	CompanyHistory string     `json:"companyHistory" yaml:"companyHistory"`
	FullQuestions  []Question `json:"fullQuestions" yaml:"fullQuestions"`
}

// DefaultAccentColor is used for topics that do not carry their own color
const DefaultAccentColor = "#040C4C"

// InterviewSource records where an interview's questions came from
type InterviewSource string

const (
	SourceLibrary InterviewSource = "library"
	SourceAI      InterviewSource = "ai"
)

// DefaultQuestionCount is used when a remote request does not ask for a count
const DefaultQuestionCount = 5

// GenerationRequest describes the questions a source should supply. Remote
// sources use Topic, NumQuestions and Difficulty; the local library uses TopicID.
type GenerationRequest struct {
	Topic        string     `json:"topic" validate:"required_without=TopicID"`
	TopicID      string     `json:"topic_id,omitempty"`
	NumQuestions int        `json:"num_questions" validate:"omitempty,min=1,max=50"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
}

// Validate checks the request using its validate tags
func (r *GenerationRequest) Validate() error {
	return validate.Struct(r)
}

// Title returns a display title for an interview built from this request
func (r *GenerationRequest) Title() string {
	if r.Topic != "" {
		return r.Topic
	}
	return r.TopicID
}

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrNoQuestions   = errors.New("no questions available")
)
