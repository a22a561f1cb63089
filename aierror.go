package devmock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind identifies one entry of the AI failure taxonomy
type ErrorKind string

const (
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindModelUnavailable    ErrorKind = "model_unavailable"
	KindRateLimited         ErrorKind = "rate_limited"
	KindNetworkUnreachable  ErrorKind = "network_unreachable"
	KindUpstreamServerError ErrorKind = "upstream_server_error"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindContentBlocked      ErrorKind = "content_blocked"
	KindUnknown             ErrorKind = "unknown"
)

// AIError is a user-facing failure of a remote question fetch. Every error
// returned by QuestionMaker is an *AIError.
type AIError struct {
	Kind       ErrorKind `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`

	ModelName  string `json:"model_name,omitempty"`
	RetryAfter *int   `json:"retry_after_seconds,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	// Detail holds the raw failure text that was classified
	Detail string `json:"detail,omitempty"`
}

func (e *AIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Message)
}

// DisplayString renders the error the way it is shown to end users
func (e *AIError) DisplayString() string {
	return fmt.Sprintf("%s\n\n%s\n\n💡 %s", e.Title, e.Message, e.Suggestion)
}

func NewQuotaExceeded() *AIError {
	return &AIError{
		Kind:       KindQuotaExceeded,
		Title:      "Quota Exceeded",
		Message:    "You've reached the API usage limit for today.",
		Suggestion: "Please try again tomorrow when the quota resets, or contact support for a plan upgrade.",
	}
}

func NewInvalidCredentials() *AIError {
	return &AIError{
		Kind:       KindInvalidCredentials,
		Title:      "Authentication Failed",
		Message:    "The API key is invalid or has expired.",
		Suggestion: "Please check your API configuration or generate a new API key.",
	}
}

func NewModelUnavailable(modelName string) *AIError {
	return &AIError{
		Kind:       KindModelUnavailable,
		Title:      "Model Not Available",
		Message:    fmt.Sprintf("The AI model '%s' is not available.", modelName),
		Suggestion: "The model may have been updated. Please update the app or try again later.",
		ModelName:  modelName,
	}
}

func NewRateLimited(retryAfter *int) *AIError {
	suggestion := "Please wait a moment before trying again."
	if retryAfter != nil {
		suggestion = fmt.Sprintf("Please wait %d seconds before trying again.", *retryAfter)
	}
	return &AIError{
		Kind:       KindRateLimited,
		Title:      "Too Many Requests",
		Message:    "You're sending requests too quickly.",
		Suggestion: suggestion,
		RetryAfter: retryAfter,
	}
}

func NewNetworkUnreachable() *AIError {
	return &AIError{
		Kind:       KindNetworkUnreachable,
		Title:      "No Connection",
		Message:    "Unable to reach the AI service.",
		Suggestion: "Please check your internet connection and try again.",
	}
}

func NewUpstreamServerError(statusCode int) *AIError {
	return &AIError{
		Kind:       KindUpstreamServerError,
		Title:      "Server Error",
		Message:    fmt.Sprintf("The AI service is temporarily unavailable (Error %d).", statusCode),
		Suggestion: "Please try again in a few minutes.",
		StatusCode: statusCode,
	}
}

func NewMalformedResponse() *AIError {
	return &AIError{
		Kind:       KindMalformedResponse,
		Title:      "Response Error",
		Message:    "Failed to understand the AI response.",
		Suggestion: "Please try again. The AI may have produced an unexpected format.",
	}
}

func NewContentBlocked() *AIError {
	return &AIError{
		Kind:       KindContentBlocked,
		Title:      "Content Blocked",
		Message:    "The request was blocked by safety filters.",
		Suggestion: "Please try a different topic or rephrase your request.",
	}
}

// NewUnknown keeps the original message when there is one
func NewUnknown(original string) *AIError {
	message := "An unexpected error occurred."
	if strings.TrimSpace(original) != "" {
		message = original
	}
	return &AIError{
		Kind:       KindUnknown,
		Title:      "Something Went Wrong",
		Message:    message,
		Suggestion: "Please try again. If the problem persists, contact support.",
	}
}

var (
	modelPathPattern   = regexp.MustCompile(`models?/([\w.-]+)`)
	modelQuotePattern  = regexp.MustCompile("(?i)model\\s+[`'\"]([\\w.-]+)[`'\"]")
	serverCodePattern  = regexp.MustCompile(`\b(5\d{2})\b`)
	statusCodePattern  = regexp.MustCompile(`\b(\d{3})\b`)
	retryPhrasePattern = regexp.MustCompile(`(?i)(?:retry[- ]after|try again in)\s*:?\s*((?:\d+(?:\.\d+)?(?:ms|h|m|s))+|\d+(?:\.\d+)?)`)
	secondsPattern     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:s|sec|secs|seconds)\b`)
)

// ClassifyError maps an arbitrary fetch failure onto the AI error taxonomy.
// It has no side effects.
func ClassifyError(err error) *AIError {
	if err == nil {
		return nil
	}

	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return withDetail(NewMalformedResponse(), err.Error())
	}

	// go-openai surfaces an empty or cut-off 200 body as a bare EOF
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return withDetail(NewMalformedResponse(), err.Error())
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return withDetail(ClassifyMessage(fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)), err.Error())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return withDetail(NewNetworkUnreachable(), err.Error())
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies raw failure text by case-insensitive substring
// and status code matching. Checks run in a fixed order; the first match wins.
func ClassifyMessage(message string) *AIError {
	lower := strings.ToLower(message)
	codes := statusCodes(lower)

	var result *AIError
	switch {
	case containsAny(lower, "quota", "insufficient_quota", "billing"):
		result = NewQuotaExceeded()

	case containsAny(lower, "api_key_invalid", "api key not valid", "invalid api key", "invalid_api_key",
		"incorrect api key", "unauthenticated", "unauthorized") || codes[401]:
		result = NewInvalidCredentials()

	case strings.Contains(lower, "model") && containsAny(lower, "not found", "does not exist", "decommissioned"):
		result = NewModelUnavailable(extractModelName(message))

	case containsAny(lower, "rate limit", "rate_limit", "too many requests") || codes[429]:
		result = NewRateLimited(extractRetryAfter(message))

	// 5xx runs ahead of the network keywords so "504 Gateway Timeout" stays a server error
	case containsAny(lower, "internal server", "bad gateway", "service unavailable", "gateway timeout") ||
		codes[500] || codes[502] || codes[503] || codes[504]:
		result = NewUpstreamServerError(extractServerCode(message))

	case containsAny(lower, "unable to resolve host", "no such host", "network", "connection",
		"timeout", "timed out", "deadline exceeded"):
		result = NewNetworkUnreachable()

	case containsAny(lower, "blocked", "safety", "harm_category", "content_filter", "content policy"):
		result = NewContentBlocked()

	case containsAny(lower, "parse", "json", "deserializ", "serializ", "unmarshal", "malformed"):
		result = NewMalformedResponse()

	default:
		return withDetail(NewUnknown(message), message)
	}

	return withDetail(result, message)
}

func withDetail(e *AIError, detail string) *AIError {
	e.Detail = detail
	return e
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// statusCodes collects every standalone three digit number, so 4290 or 1500 do not count
func statusCodes(s string) map[int]bool {
	codes := make(map[int]bool)
	for _, m := range statusCodePattern.FindAllStringSubmatch(s, -1) {
		if code, err := strconv.Atoi(m[1]); err == nil {
			codes[code] = true
		}
	}
	return codes
}

func extractModelName(message string) string {
	if m := modelPathPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := modelQuotePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return "unknown"
}

func extractServerCode(message string) int {
	if m := serverCodePattern.FindStringSubmatch(message); m != nil {
		if code, err := strconv.Atoi(m[1]); err == nil {
			return code
		}
	}
	return 500
}

// extractRetryAfter returns whole seconds, rounded up, or nil when the text
// carries no usable hint.
func extractRetryAfter(message string) *int {
	if m := retryPhrasePattern.FindStringSubmatch(message); m != nil {
		token := strings.ToLower(m[1])
		if _, err := strconv.ParseFloat(token, 64); err == nil {
			token += "s"
		}
		if d, err := time.ParseDuration(token); err == nil {
			seconds := int(math.Ceil(d.Seconds()))
			return &seconds
		}
	}
	if m := secondsPattern.FindStringSubmatch(message); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			seconds := int(math.Ceil(value))
			return &seconds
		}
	}
	return nil
}
