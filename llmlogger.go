package devmock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger records the LLM traffic of a single interview to its own file
type LLMLogger struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	interviewID string
	started     time.Time
}

// NewLLMLogger creates dir if needed and opens <dir>/<interviewID>.log,
// truncating an earlier log of the same interview.
func NewLLMLogger(dir, interviewID string, req GenerationRequest) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, interviewID+".log")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	ll := &LLMLogger{
		file:        file,
		path:        path,
		interviewID: interviewID,
		started:     time.Now(),
	}
	ll.section("Interview Generation Log", fmt.Sprintf(
		"Interview ID: %s\nTopic: %s\nNumber of Questions: %d\nDifficulty: %s\nStarted: %s\n",
		interviewID, req.Topic, req.NumQuestions, req.Difficulty, ll.started.Format(time.RFC3339)))
	return ll, nil
}

// Path returns the log file location
func (ll *LLMLogger) Path() string {
	return ll.path
}

// Logf writes a timestamped entry and syncs it to disk. Entries written
// after Close are dropped.
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.write(fmt.Sprintf(format, args...))
}

func (ll *LLMLogger) write(message string) {
	if ll.file == nil {
		return
	}
	fmt.Fprintf(ll.file, "[%s] %s", time.Now().Format("15:04:05.000"), message)
	ll.file.Sync()
}

func (ll *LLMLogger) section(title, body string) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.write(fmt.Sprintf("=== %s ===\n%s\n", title, body))
}

// LogLLMRequest records the prompt sent to model
func (ll *LLMLogger) LogLLMRequest(model, prompt string) {
	ll.section("LLM REQUEST ("+model+")", "Prompt:\n"+prompt)
}

// LogLLMResponse records the raw reply and why the model stopped
func (ll *LLMLogger) LogLLMResponse(model, finishReason, content string) {
	ll.section("LLM RESPONSE ("+model+")", fmt.Sprintf("Finish reason: %s\nResponse:\n%s", finishReason, content))
}

// LogOutcome records how many questions were produced or why the fetch
// failed, with the time spent since the log was opened.
func (ll *LLMLogger) LogOutcome(count int, kind ErrorKind, detail string) {
	elapsed := time.Since(ll.started).Round(time.Millisecond)
	if kind != "" {
		ll.Logf("Outcome: FAILED (%s) after %s - %s\n", kind, elapsed, detail)
		return
	}
	ll.Logf("Outcome: %d questions after %s\n", count, elapsed)
}

// Close writes the footer and closes the file. It is safe to call twice.
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.write(fmt.Sprintf("=== Interview Generation Complete ===\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	err := ll.file.Close()
	ll.file = nil
	return err
}
