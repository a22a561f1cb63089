package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"devmock"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topicBundle = `{
  "id": "go",
  "topicTitle": "Go",
  "category": "Backend",
  "difficulty": "Middle",
  "fullQuestions": [
    {"question": "Zero value of a map?", "options": ["nil", "empty map"], "correctAnswerIndex": 0, "explanation": "Maps are nil until made."},
    {"question": "Keyword to start a goroutine?", "options": ["async", "go", "spawn"], "correctAnswerIndex": 1}
  ]
}`

const aiPayload = `{"questions": [{"question": "What is a slice?", "options": ["A view of an array", "A map"], "correctAnswerIndex": 0}]}`

type testClient struct {
	t      *testing.T
	base   string
	http   *http.Client
	server *Server
	clock  *atomic.Int64
}

// fork returns a second browser against the same server
func (c *testClient) fork() *testClient {
	jar, err := cookiejar.New(nil)
	require.NoError(c.t, err)
	other := *c
	other.http = &http.Client{Jar: jar}
	return &other
}

func (c *testClient) advance(d time.Duration) {
	c.clock.Add(int64(d))
}

func (c *testClient) liveIDs() []string {
	c.server.mu.Lock()
	defer c.server.mu.Unlock()
	var ids []string
	for id := range c.server.interviews {
		ids = append(ids, id)
	}
	return ids
}

func (c *testClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func newTestServer(t *testing.T, maker *devmock.QuestionMaker) (*testClient, *devmock.DB) {
	t.Helper()
	dir := t.TempDir()

	db, err := devmock.OpenDB(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	library, err := devmock.LoadLibrary(fstest.MapFS{"go.json": {Data: []byte(topicBundle)}})
	require.NoError(t, err)

	server := NewServer(db, library, maker, newCookieStore([]byte("test-secret-test-secret-test-sec")), filepath.Join(dir, "log"))
	clock := &atomic.Int64{}
	clock.Store(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).UnixNano())
	server.now = func() time.Time { return time.Unix(0, clock.Load()) }

	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}, server: server, clock: clock}, db
}

// newFakeModel serves chat completions; failures is the number of 503
// replies sent before the first success.
func newFakeModel(t *testing.T, failures int32) *devmock.QuestionMaker {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": {"message": "Service Unavailable", "type": "internal_server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: aiPayload},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return devmock.NewQuestionMakerWithConfig(devmock.MakerConfig{APIKey: "test", BaseURL: srv.URL})
}

func waitForPhase(t *testing.T, c *testClient, phase string) map[string]interface{} {
	t.Helper()
	var last map[string]interface{}
	require.Eventually(t, func() bool {
		status, body := c.do(http.MethodGet, "/interview", nil)
		last = body
		return status == http.StatusOK && body["phase"] == phase
	}, 5*time.Second, 20*time.Millisecond, "interview never reached %s", phase)
	return last
}

func TestServer_LibraryInterview(t *testing.T) {
	c, db := newTestServer(t, nil)

	status, body := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ready", body["phase"])
	assert.Equal(t, "Go", body["title"])
	assert.EqualValues(t, 2, body["total"])
	question := body["question"].(map[string]interface{})
	assert.Equal(t, "Zero value of a map?", question["question"])
	assert.NotContains(t, question, "correct_answer_index")

	status, body = c.do(http.MethodPost, "/interview/select", map[string]interface{}{"option": 0})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["applied"])
	assert.EqualValues(t, 0, body["selected_option"])

	status, body = c.do(http.MethodPost, "/interview/confirm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["revealed"])
	assert.Equal(t, true, body["correct"])
	assert.EqualValues(t, 1, body["score"])
	question = body["question"].(map[string]interface{})
	assert.EqualValues(t, 0, question["correct_answer_index"])
	assert.Equal(t, "Maps are nil until made.", question["explanation"])

	// a second confirm is a no-op
	_, body = c.do(http.MethodPost, "/interview/confirm", nil)
	assert.Equal(t, false, body["applied"])
	assert.EqualValues(t, 1, body["score"])

	_, body = c.do(http.MethodPost, "/interview/next", nil)
	assert.EqualValues(t, 1, body["current_index"])
	assert.Nil(t, body["selected_option"])

	c.do(http.MethodPost, "/interview/select", map[string]interface{}{"option": 0})
	c.do(http.MethodPost, "/interview/confirm", nil)
	_, body = c.do(http.MethodPost, "/interview/next", nil)

	assert.Equal(t, "completed", body["phase"])
	assert.Equal(t, true, body["completed"])
	result := body["result"].(map[string]interface{})
	assert.EqualValues(t, 1, result["score"])
	assert.EqualValues(t, 2, result["total"])
	assert.EqualValues(t, 50, result["percentage"])
	assert.Equal(t, "Good job! A bit more practice and you'll be perfect.", body["feedback"])

	history, err := db.History(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, devmock.NewResult(1, 2), history[0].Result)

	status, body = c.do(http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["history"], 1)
}

func TestServer_NoInterview(t *testing.T) {
	c, _ := newTestServer(t, nil)

	status, body := c.do(http.MethodGet, "/interview", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no interview in progress", body["error"])

	status, _ = c.do(http.MethodPost, "/interview/confirm", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_BadRequests(t *testing.T) {
	c, _ := newTestServer(t, nil)

	status, _ := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.do(http.MethodPost, "/interviews", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic": "Go"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "AI interviews are not configured", body["error"])

	c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})
	status, _ = c.do(http.MethodPost, "/interview/select", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = c.do(http.MethodPost, "/interview/select", map[string]interface{}{"option": 7})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["applied"])

	status, _ = c.do(http.MethodPost, "/interview/retry", nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestServer_Topics(t *testing.T) {
	c, _ := newTestServer(t, nil)

	status, body := c.do(http.MethodGet, "/topics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["topics"], 1)
	assert.Equal(t, []interface{}{"Backend"}, body["categories"])

	_, body = c.do(http.MethodGet, "/topics?difficulty=senior", nil)
	assert.Empty(t, body["topics"])

	status, _ = c.do(http.MethodGet, "/topics?difficulty=legendary", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_AIInterview(t *testing.T) {
	c, _ := newTestServer(t, newFakeModel(t, 0))

	status, body := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic": "Go slices", "num_questions": 1, "difficulty": "junior"})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "Go slices", body["title"])

	body = waitForPhase(t, c, "ready")
	assert.EqualValues(t, 1, body["total"])
	question := body["question"].(map[string]interface{})
	assert.Equal(t, "What is a slice?", question["question"])
	assert.Equal(t, "Easy", question["difficulty"])
}

func TestServer_AIInterviewRetry(t *testing.T) {
	c, _ := newTestServer(t, newFakeModel(t, 1))

	status, _ := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic": "Go"})
	require.Equal(t, http.StatusAccepted, status)

	body := waitForPhase(t, c, "errored")
	failure := body["error"].(map[string]interface{})
	assert.Equal(t, string(devmock.KindUpstreamServerError), failure["kind"])
	assert.EqualValues(t, 503, failure["status_code"])

	status, _ = c.do(http.MethodPost, "/interview/retry", nil)
	require.Equal(t, http.StatusAccepted, status)

	body = waitForPhase(t, c, "ready")
	assert.Nil(t, body["error"])
}

func TestServer_SessionCookie(t *testing.T) {
	c, _ := newTestServer(t, nil)

	status, _ := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})
	require.Equal(t, http.StatusCreated, status)

	base, err := url.Parse(c.base)
	require.NoError(t, err)
	cookies := c.http.Jar.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionName, cookies[0].Name)

	status, _ = c.do(http.MethodGet, "/interview", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestNewCookieStore(t *testing.T) {
	store := newCookieStore([]byte("test-secret-test-secret-test-sec"))
	assert.False(t, store.Options.Secure)
	assert.True(t, store.Options.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, store.Options.SameSite)
	assert.Equal(t, "/", store.Options.Path)
}

func TestServer_EvictsIdleInterviews(t *testing.T) {
	c, _ := newTestServer(t, nil)
	other := c.fork()

	_, first := c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})
	_, second := other.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})
	require.Len(t, c.liveIDs(), 2)

	// other keeps using its interview; c walks away
	c.advance(time.Hour)
	status, _ := other.do(http.MethodGet, "/interview", nil)
	require.Equal(t, http.StatusOK, status)
	c.advance(90 * time.Minute)

	_, third := c.fork().do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})

	ids := toAny(c.liveIDs())
	assert.ElementsMatch(t, []interface{}{second["interview_id"], third["interview_id"]}, ids)
	assert.NotContains(t, ids, first["interview_id"])

	status, body := c.do(http.MethodGet, "/interview", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "interview not found")

	status, _ = other.do(http.MethodGet, "/interview", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_KeepsLoadingInterviews(t *testing.T) {
	c, _ := newTestServer(t, nil)

	li := &liveInterview{id: "fetching", lastUsed: c.server.now()}
	li.state = devmock.SessionState{Phase: devmock.PhaseLoading}
	c.server.mu.Lock()
	c.server.interviews[li.id] = li
	c.server.mu.Unlock()

	c.advance(3 * time.Hour)
	c.do(http.MethodPost, "/interviews", map[string]interface{}{"topic_id": "go"})

	assert.Contains(t, c.liveIDs(), "fetching")
}

func toAny(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
