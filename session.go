package devmock

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Phase is the coarse state of an interview session
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseReady     Phase = "ready"
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

var (
	ErrNoSource       = errors.New("session has no question source")
	ErrAlreadyStarted = errors.New("session already has questions")
)

// SessionState is a snapshot of where the user is in an interview
type SessionState struct {
	Phase          Phase      `json:"phase"`
	Title          string     `json:"title"`
	Questions      []Question `json:"questions"`
	CurrentIndex   int        `json:"current_index"`
	SelectedOption *int       `json:"selected_option"`
	Revealed       bool       `json:"revealed"`
	Score          int        `json:"score"`
	Completed      bool       `json:"completed"`
	Error          string     `json:"error,omitempty"`
	Failure        *AIError   `json:"failure,omitempty"`
}

// CurrentQuestion returns the question at the current index, if any
func (s SessionState) CurrentQuestion() (Question, bool) {
	if s.Phase != PhaseReady || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// AnsweredCorrectly reports whether the revealed answer for the current
// question was right. It is false until the answer is revealed.
func (s SessionState) AnsweredCorrectly() bool {
	q, ok := s.CurrentQuestion()
	return ok && s.Revealed && s.SelectedOption != nil && q.IsCorrect(*s.SelectedOption)
}

func (s SessionState) clone() SessionState {
	c := s
	if s.SelectedOption != nil {
		selected := *s.SelectedOption
		c.SelectedOption = &selected
	}
	return c
}

// Observer receives every state the session passes through, in order
type Observer interface {
	OnState(state SessionState)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(state SessionState)

func (f ObserverFunc) OnState(state SessionState) {
	f(state)
}

// Session drives one interview over a fixed question list. A Session has a
// single owner: its methods must not be called concurrently. Observers are
// called synchronously from the mutating call and must not call back into
// the session.
type Session struct {
	source    QuestionSource
	req       GenerationRequest
	state     SessionState
	observers []Observer
}

// NewSession starts a session over an already fetched question list. An
// empty list yields an errored session.
func NewSession(title string, questions []Question, observers ...Observer) *Session {
	s := &Session{
		observers: observers,
		state:     SessionState{Title: title},
	}
	s.apply(questions, nil)
	return s
}

// NewPendingSession creates a session in the loading phase. Load performs
// the fetch.
func NewPendingSession(source QuestionSource, req GenerationRequest, observers ...Observer) *Session {
	return &Session{
		source:    source,
		req:       req,
		observers: observers,
		state:     SessionState{Phase: PhaseLoading, Title: req.Title()},
	}
}

// Subscribe adds an observer. It is not sent the current state.
func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// State returns a snapshot of the current state
func (s *Session) State() SessionState {
	return s.state.clone()
}

// Load fetches the question list from the session's source, replacing any
// previous loading or errored state. A failed or cancelled fetch leaves the
// session errored with no questions.
func (s *Session) Load(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}
	if s.state.Phase == PhaseReady || s.state.Phase == PhaseCompleted {
		return ErrAlreadyStarted
	}

	s.state = SessionState{Phase: PhaseLoading, Title: s.state.Title}
	s.publish()

	VerboseLog("Loading questions for %q (count=%d, difficulty=%s)", s.req.Title(), s.req.NumQuestions, s.req.Difficulty)

	questions, err := s.source.Questions(ctx, s.req)
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil && len(questions) == 0 {
			err = ctxErr
		}
	}
	s.apply(questions, err)

	if s.state.Phase == PhaseErrored {
		log.Printf("Interview %q failed to load: %s", s.state.Title, s.state.Error)
		return fmt.Errorf("failed to load questions: %w", s.loadErr(err))
	}
	return nil
}

// Retry re-runs the fetch from scratch. It is only valid while loading or
// after an error.
func (s *Session) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Session) loadErr(err error) error {
	if err != nil {
		return err
	}
	return ErrNoQuestions
}

func (s *Session) apply(questions []Question, err error) {
	title := s.state.Title
	switch {
	case err != nil:
		s.state = SessionState{Phase: PhaseErrored, Title: title, Error: err.Error()}
		var aiErr *AIError
		if errors.As(err, &aiErr) {
			s.state.Failure = aiErr
		}
	case len(questions) == 0:
		s.state = SessionState{Phase: PhaseErrored, Title: title, Error: ErrNoQuestions.Error()}
	default:
		fixed := make([]Question, len(questions))
		copy(fixed, questions)
		s.state = SessionState{Phase: PhaseReady, Title: title, Questions: fixed}
	}
	s.publish()
}

// Select chooses an option for the current question. It is ignored once the
// answer is revealed, outside the ready phase, or for an index outside the
// current question's options. It reports whether the state changed.
func (s *Session) Select(option int) bool {
	q, ok := s.state.CurrentQuestion()
	if !ok || s.state.Revealed {
		return false
	}
	if option < 0 || option >= len(q.Options) {
		return false
	}
	s.state.SelectedOption = &option
	s.publish()
	return true
}

// Confirm reveals the answer for the current question and scores it. It
// needs a selection and does nothing if the answer is already revealed, so a
// question is scored at most once.
func (s *Session) Confirm() bool {
	q, ok := s.state.CurrentQuestion()
	if !ok || s.state.Revealed || s.state.SelectedOption == nil {
		return false
	}
	if q.IsCorrect(*s.state.SelectedOption) {
		s.state.Score++
	}
	s.state.Revealed = true
	s.publish()
	return true
}

// Next moves to the following question, clearing selection and reveal, or
// completes the session after the last question. Advancing without
// confirming is allowed and leaves that question unscored.
func (s *Session) Next() bool {
	if s.state.Phase != PhaseReady {
		return false
	}
	next := s.state.CurrentIndex + 1
	if next < len(s.state.Questions) {
		s.state.CurrentIndex = next
		s.state.SelectedOption = nil
		s.state.Revealed = false
	} else {
		s.state.Completed = true
		s.state.Phase = PhaseCompleted
	}
	s.publish()
	return true
}

// Summary returns the tally for the questions in the session
func (s *Session) Summary() Result {
	return NewResult(s.state.Score, len(s.state.Questions))
}

func (s *Session) publish() {
	for _, o := range s.observers {
		o.OnState(s.state.clone())
	}
}
