package devmock

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = 4096
)

// MakerConfig configures the chat completion client used by QuestionMaker
type MakerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// QuestionMaker generates interview questions with a chat completion model
type QuestionMaker struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *LLMLogger
}

// NewQuestionMaker creates a question maker against the default endpoint
func NewQuestionMaker(apiKey string) *QuestionMaker {
	return NewQuestionMakerWithConfig(MakerConfig{APIKey: apiKey})
}

// NewQuestionMakerWithConfig creates a question maker; zero fields take defaults
func NewQuestionMakerWithConfig(cfg MakerConfig) *QuestionMaker {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	qm := &QuestionMaker{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if qm.model == "" {
		qm.model = DefaultModel
	}
	if qm.temperature == 0 {
		qm.temperature = DefaultTemperature
	}
	if qm.maxTokens == 0 {
		qm.maxTokens = DefaultMaxTokens
	}
	return qm
}

// WithLogger returns a copy of the maker that records its LLM traffic to logger
func (qm *QuestionMaker) WithLogger(logger *LLMLogger) *QuestionMaker {
	c := *qm
	c.logger = logger
	return &c
}

// Questions implements QuestionSource
func (qm *QuestionMaker) Questions(ctx context.Context, req GenerationRequest) ([]Question, error) {
	return qm.GenerateQuestions(ctx, req)
}

// GenerateQuestions asks the model for req.NumQuestions questions about
// req.Topic. It makes exactly one request and never retries. Every returned
// error is an *AIError.
func (qm *QuestionMaker) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]Question, error) {
	if req.NumQuestions == 0 {
		req.NumQuestions = DefaultQuestionCount
	}
	if err := req.Validate(); err != nil {
		return nil, withDetail(NewUnknown(fmt.Sprintf("invalid request: %v", err)), err.Error())
	}
	if req.Topic == "" {
		return nil, NewUnknown("invalid request: topic is required")
	}

	log.Printf("Generating %d questions for topic: %s (%s)", req.NumQuestions, req.Topic, req.Difficulty)

	prompt := qm.buildPrompt(req)
	if qm.logger != nil {
		qm.logger.LogLLMRequest(qm.model, prompt)
	}

	resp, err := qm.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: qm.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert technical interviewer. You write multiple choice interview questions and always answer with a single JSON object.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: qm.temperature,
			MaxTokens:   qm.maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		aiErr := ClassifyError(err)
		qm.logOutcome(0, aiErr)
		return nil, aiErr
	}

	VerboseLog("Received response from %s with %d choices", qm.model, len(resp.Choices))

	if len(resp.Choices) == 0 {
		aiErr := withDetail(NewMalformedResponse(), "no choices in response")
		qm.logOutcome(0, aiErr)
		return nil, aiErr
	}

	choice := resp.Choices[0]
	if qm.logger != nil {
		qm.logger.LogLLMResponse(qm.model, string(choice.FinishReason), choice.Message.Content)
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		aiErr := withDetail(NewContentBlocked(), "finish reason: content_filter")
		qm.logOutcome(0, aiErr)
		return nil, aiErr
	}

	questions, err := ParseQuestionsPayload(choice.Message.Content)
	if err != nil {
		aiErr := ClassifyError(err)
		qm.logOutcome(0, aiErr)
		return nil, aiErr
	}

	questions = DedupQuestions(questions)
	for i := range questions {
		if questions[i].Difficulty == DifficultyUnspecified {
			questions[i].Difficulty = req.Difficulty
		}
	}
	if len(questions) > req.NumQuestions {
		questions = questions[:req.NumQuestions]
	} else if len(questions) < req.NumQuestions {
		log.Printf("Model returned %d of %d requested questions", len(questions), req.NumQuestions)
	}

	qm.logOutcome(len(questions), nil)
	log.Printf("Generated %d questions", len(questions))
	return questions, nil
}

func (qm *QuestionMaker) logOutcome(count int, err *AIError) {
	if qm.logger == nil {
		return
	}
	if err != nil {
		qm.logger.LogOutcome(0, err.Kind, err.Detail)
		return
	}
	qm.logger.LogOutcome(count, "", "")
}

func (qm *QuestionMaker) buildPrompt(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice interview questions about: %s\n\n", req.NumQuestions, req.Topic))

	if req.Difficulty != DifficultyUnspecified {
		sb.WriteString(fmt.Sprintf("Difficulty level: %s\n\n", req.Difficulty))
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Each question must have exactly 4 options\n")
	sb.WriteString("- Exactly one option is correct\n")
	sb.WriteString("- Questions should be the kind asked in a real technical interview\n")
	sb.WriteString("- Provide a brief explanation of why the correct answer is right\n\n")

	sb.WriteString("Respond with only this JSON object:\n")
	sb.WriteString(`{"questions": [{"question": "string", "options": ["string"], "correctAnswerIndex": 0, "explanation": "string", "difficulty": "Easy|Medium|Hard"}]}`)
	sb.WriteString("\ncorrectAnswerIndex is the 0-based index of the correct option.\n")

	return sb.String()
}

// questionsSchema is the contract for the model's JSON payload
const questionsSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "options", "correctAnswerIndex"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
          "correctAnswerIndex": {"type": "integer", "minimum": 0},
          "explanation": {"type": ["string", "null"]},
          "difficulty": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var questionsSchemaLoader = gojsonschema.NewStringLoader(questionsSchema)

// ParseQuestionsPayload decodes a model reply into questions. Anything other
// than a schema-conforming, non-empty question list is a MalformedResponse.
func ParseQuestionsPayload(content string) ([]Question, error) {
	content = CleanJSONBlock(content)
	if content == "" {
		return nil, withDetail(NewMalformedResponse(), "empty message content")
	}

	result, err := gojsonschema.Validate(questionsSchemaLoader, gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, withDetail(NewMalformedResponse(), fmt.Sprintf("invalid JSON: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, withDetail(NewMalformedResponse(), "schema mismatch: "+strings.Join(details, "; "))
	}

	var payload struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, withDetail(NewMalformedResponse(), err.Error())
	}

	for i := range payload.Questions {
		if err := payload.Questions[i].Validate(); err != nil {
			return nil, withDetail(NewMalformedResponse(), fmt.Sprintf("question %d: %v", i+1, err))
		}
	}
	return payload.Questions, nil
}

// CleanJSONBlock strips a markdown code fence around a JSON reply
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if !strings.Contains(firstLine, "{") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
