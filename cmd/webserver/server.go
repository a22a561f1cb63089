package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"devmock"

	"github.com/gorilla/sessions"
)

const (
	sessionName    = "devmock-session"
	interviewKey   = "interview_id"
	loadTimeout    = 2 * time.Minute
	idleTTL        = 2 * time.Hour
	maxRequestBody = 1 << 20
)

// Server exposes interview sessions over a JSON API. The browser's cookie
// session holds the id of its current interview.
type Server struct {
	db      *devmock.DB
	library *devmock.Library
	maker   *devmock.QuestionMaker
	store   sessions.Store
	logDir  string
	idleTTL time.Duration
	now     func() time.Time

	mu         sync.Mutex
	interviews map[string]*liveInterview
}

// liveInterview pairs a session with the lock that serializes its
// operations. The latest snapshot is kept separately so reads never wait on
// a fetch in progress. loading is guarded by mu and is set while a
// background fetch is pending. lastUsed is guarded by Server.mu.
type liveInterview struct {
	id       string
	lastUsed time.Time

	mu      sync.Mutex
	session *devmock.Session
	loading bool

	stateMu sync.RWMutex
	state   devmock.SessionState
}

func (li *liveInterview) OnState(state devmock.SessionState) {
	li.stateMu.Lock()
	li.state = state
	li.stateMu.Unlock()
}

func (li *liveInterview) snapshot() devmock.SessionState {
	li.stateMu.RLock()
	defer li.stateMu.RUnlock()
	return li.state
}

// NewServer creates a server. maker may be nil, which disables AI interviews.
func NewServer(db *devmock.DB, library *devmock.Library, maker *devmock.QuestionMaker, store sessions.Store, logDir string) *Server {
	return &Server{
		db:         db,
		library:    library,
		maker:      maker,
		store:      store,
		logDir:     logDir,
		idleTTL:    idleTTL,
		now:        time.Now,
		interviews: make(map[string]*liveInterview),
	}
}

// Routes returns the API handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /topics", s.handleTopics)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /interviews", s.handleNewInterview)
	mux.HandleFunc("GET /interview", s.handleInterview)
	mux.HandleFunc("POST /interview/select", s.handleSelect)
	mux.HandleFunc("POST /interview/confirm", s.handleConfirm)
	mux.HandleFunc("POST /interview/next", s.handleNext)
	mux.HandleFunc("POST /interview/retry", s.handleRetry)
	return mux
}

type newInterviewRequest struct {
	TopicID      string `json:"topic_id"`
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
}

type questionView struct {
	Text               string             `json:"question"`
	Options            []string           `json:"options"`
	Difficulty         devmock.Difficulty `json:"difficulty,omitempty"`
	CorrectAnswerIndex *int               `json:"correct_answer_index,omitempty"`
	Explanation        string             `json:"explanation,omitempty"`
}

type interviewView struct {
	ID             string           `json:"interview_id"`
	Phase          devmock.Phase    `json:"phase"`
	Title          string           `json:"title"`
	Total          int              `json:"total"`
	CurrentIndex   int              `json:"current_index"`
	Question       *questionView    `json:"question,omitempty"`
	SelectedOption *int             `json:"selected_option"`
	Revealed       bool             `json:"revealed"`
	Correct        *bool            `json:"correct,omitempty"`
	Score          int              `json:"score"`
	Completed      bool             `json:"completed"`
	Error          *devmock.AIError `json:"error,omitempty"`
	Result         *devmock.Result  `json:"result,omitempty"`
	Feedback       string           `json:"feedback,omitempty"`
	Applied        *bool            `json:"applied,omitempty"`
}

// newInterviewView renders a snapshot. The correct answer and explanation
// stay hidden until the answer is revealed.
func newInterviewView(id string, state devmock.SessionState) interviewView {
	view := interviewView{
		ID:             id,
		Phase:          state.Phase,
		Title:          state.Title,
		Total:          len(state.Questions),
		CurrentIndex:   state.CurrentIndex,
		SelectedOption: state.SelectedOption,
		Revealed:       state.Revealed,
		Score:          state.Score,
		Completed:      state.Completed,
	}

	if q, ok := state.CurrentQuestion(); ok {
		qv := &questionView{Text: q.Text, Options: q.Options, Difficulty: q.Difficulty}
		if state.Revealed {
			correctIndex := q.CorrectAnswerIndex
			qv.CorrectAnswerIndex = &correctIndex
			qv.Explanation = q.Explanation
			correct := state.AnsweredCorrectly()
			view.Correct = &correct
		}
		view.Question = qv
	}

	switch state.Phase {
	case devmock.PhaseErrored:
		view.Error = state.Failure
		if view.Error == nil {
			view.Error = devmock.NewUnknown(state.Error)
		}
	case devmock.PhaseCompleted:
		result := devmock.NewResult(state.Score, len(state.Questions))
		view.Result = &result
		view.Feedback = result.Tier.Feedback()
	}
	return view
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics := s.library.Topics()
	if label := r.URL.Query().Get("difficulty"); label != "" {
		difficulty := devmock.ParseDifficulty(label)
		if difficulty == devmock.DifficultyUnspecified {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown difficulty %q", label))
			return
		}
		topics = s.library.TopicsByDifficulty(difficulty)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topics":     topics,
		"categories": s.library.Categories(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.db.History(50)
	if err != nil {
		log.Printf("Failed to get history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (s *Server) handleNewInterview(w http.ResponseWriter, r *http.Request) {
	var body newInterviewRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interview := &devmock.DBInterview{ID: devmock.NewInterviewID()}
	var source devmock.QuestionSource
	var req devmock.GenerationRequest

	switch {
	case body.TopicID != "":
		topic, ok := s.library.TopicByID(body.TopicID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", devmock.ErrTopicNotFound, body.TopicID))
			return
		}
		req = devmock.GenerationRequest{Topic: topic.Title, TopicID: topic.ID, Difficulty: topic.Difficulty}
		source = s.library
		interview.Source = devmock.SourceLibrary
		interview.NumQuestions = len(topic.FullQuestions)

	case body.Topic != "":
		if s.maker == nil {
			writeError(w, http.StatusServiceUnavailable, "AI interviews are not configured")
			return
		}
		req = devmock.GenerationRequest{
			Topic:        body.Topic,
			NumQuestions: body.NumQuestions,
			Difficulty:   devmock.ParseDifficulty(body.Difficulty),
		}
		if req.NumQuestions == 0 {
			req.NumQuestions = devmock.DefaultQuestionCount
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		source = s.aiSource(interview.ID)
		interview.Source = devmock.SourceAI
		interview.NumQuestions = req.NumQuestions

	default:
		writeError(w, http.StatusBadRequest, "topic_id or topic is required")
		return
	}

	interview.Title = req.Title()
	interview.TopicID = req.TopicID
	interview.Difficulty = req.Difficulty
	if err := s.db.CreateInterview(interview); err != nil {
		log.Printf("Failed to create interview: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create interview")
		return
	}

	li := &liveInterview{id: interview.ID, lastUsed: s.now()}
	li.session = devmock.NewPendingSession(source, req, li, s.db.Recorder(interview.ID))
	li.state = li.session.State()
	remote := interview.Source == devmock.SourceAI
	li.loading = remote

	s.mu.Lock()
	s.evictIdle()
	s.interviews[li.id] = li
	s.mu.Unlock()

	if err := s.setCurrentInterview(w, r, li.id); err != nil {
		log.Printf("Session save error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	log.Printf("Created %s interview %s on %q", interview.Source, li.id, interview.Title)

	if !remote {
		s.load(li)
		writeJSON(w, http.StatusCreated, newInterviewView(li.id, li.snapshot()))
		return
	}

	// Remote fetches run in the background; clients poll GET /interview
	go s.load(li)
	writeJSON(w, http.StatusAccepted, newInterviewView(li.id, li.snapshot()))
}

// aiSource wraps the question maker with a per-interview LLM log file
func (s *Server) aiSource(interviewID string) devmock.QuestionSource {
	return devmock.SourceFunc(func(ctx context.Context, req devmock.GenerationRequest) ([]devmock.Question, error) {
		maker := s.maker
		logger, err := devmock.NewLLMLogger(s.logDir, interviewID, req)
		if err != nil {
			log.Printf("Warning: failed to create LLM logger: %v", err)
		} else {
			defer logger.Close()
			maker = maker.WithLogger(logger)
		}
		return maker.Questions(ctx, req)
	})
}

// load runs a fetch for li while holding its lock
func (s *Server) load(li *liveInterview) {
	li.mu.Lock()
	defer li.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	if err := li.session.Load(ctx); err != nil {
		log.Printf("Interview %s failed to load: %v", li.id, err)
	}
	li.loading = false
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	li, ok := s.currentInterview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newInterviewView(li.id, li.snapshot()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Option *int `json:"option"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}
	option := *body.Option
	s.apply(w, r, func(session *devmock.Session) bool {
		return session.Select(option)
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, (*devmock.Session).Confirm)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, (*devmock.Session).Next)
}

// apply runs one session operation under the interview's lock and reports
// whether it changed anything. No-op operations still answer 200.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op func(*devmock.Session) bool) {
	li, ok := s.currentInterview(w, r)
	if !ok {
		return
	}
	if li.snapshot().Phase == devmock.PhaseLoading {
		writeError(w, http.StatusConflict, "questions are still loading")
		return
	}

	li.mu.Lock()
	applied := op(li.session)
	state := li.session.State()
	li.mu.Unlock()

	view := newInterviewView(li.id, state)
	view.Applied = &applied
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	li, ok := s.currentInterview(w, r)
	if !ok {
		return
	}
	li.mu.Lock()
	if li.loading {
		li.mu.Unlock()
		writeError(w, http.StatusConflict, "questions are still loading")
		return
	}
	if phase := li.session.State().Phase; phase != devmock.PhaseErrored {
		li.mu.Unlock()
		writeError(w, http.StatusConflict, fmt.Sprintf("cannot retry an interview that is %s", phase))
		return
	}
	li.loading = true
	li.mu.Unlock()

	go s.load(li)
	writeJSON(w, http.StatusAccepted, newInterviewView(li.id, li.snapshot()))
}

// evictIdle drops interviews nobody has touched within idleTTL. Results are
// already recorded by then; an interview still fetching is kept. Callers
// hold s.mu.
func (s *Server) evictIdle() {
	cutoff := s.now().Add(-s.idleTTL)
	for id, li := range s.interviews {
		if li.lastUsed.Before(cutoff) && li.snapshot().Phase != devmock.PhaseLoading {
			delete(s.interviews, id)
		}
	}
}

// currentInterview resolves the interview named by the cookie session. It
// writes the error response itself when there is none.
func (s *Server) currentInterview(w http.ResponseWriter, r *http.Request) (*liveInterview, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		log.Printf("Session decode error: %v", err)
	}

	id, _ := session.Values[interviewKey].(string)
	if id == "" {
		writeError(w, http.StatusNotFound, "no interview in progress")
		return nil, false
	}

	s.mu.Lock()
	li, ok := s.interviews[id]
	if ok {
		li.lastUsed = s.now()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", devmock.ErrInterviewNotFound, id))
		return nil, false
	}
	return li, true
}

func (s *Server) setCurrentInterview(w http.ResponseWriter, r *http.Request, id string) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		log.Printf("Session decode error, starting a new session: %v", err)
	}
	session.Values[interviewKey] = id
	return session.Save(r, w)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
