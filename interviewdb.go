package devmock

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Interview status values stored in the interviews table
const (
	StatusLoading   = "loading"
	StatusReady     = "ready"
	StatusErrored   = "errored"
	StatusCompleted = "completed"
)

var ErrInterviewNotFound = errors.New("interview not found")

// DB stores interviews, their question lists and final results
type DB struct {
	db *sql.DB
}

// DBInterview is one interview row
type DBInterview struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	TopicID      string          `json:"topic_id,omitempty"`
	Source       InterviewSource `json:"source"`
	Difficulty   Difficulty      `json:"difficulty"`
	NumQuestions int             `json:"num_questions"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       string          `json:"status"`
}

// HistoryEntry is a finished interview with its result
type HistoryEntry struct {
	InterviewID string          `json:"interview_id"`
	Title       string          `json:"title"`
	Source      InterviewSource `json:"source"`
	Difficulty  Difficulty      `json:"difficulty"`
	Result      Result          `json:"result"`
	CompletedAt time.Time       `json:"completed_at"`
}

// NewInterviewID returns a fresh interview identifier
func NewInterviewID() string {
	return uuid.NewString()
}

// OpenDB opens (or creates) the sqlite database at dbPath and creates its tables
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &DB{db: db}
	if err := store.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS interviews (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			topic_id TEXT,
			source TEXT NOT NULL,
			difficulty TEXT,
			num_questions INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'loading'
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			interview_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer INTEGER NOT NULL,
			explanation TEXT,
			difficulty TEXT,
			FOREIGN KEY (interview_id) REFERENCES interviews(id)
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			interview_id TEXT PRIMARY KEY,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			tier TEXT NOT NULL,
			completed_at DATETIME NOT NULL,
			FOREIGN KEY (interview_id) REFERENCES interviews(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateInterview inserts a new interview row
func (db *DB) CreateInterview(interview *DBInterview) error {
	if interview.CreatedAt.IsZero() {
		interview.CreatedAt = time.Now()
	}
	if interview.Status == "" {
		interview.Status = StatusLoading
	}
	_, err := db.db.Exec(
		"INSERT INTO interviews (id, title, topic_id, source, difficulty, num_questions, created_at, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		interview.ID, interview.Title, interview.TopicID, string(interview.Source), string(interview.Difficulty),
		interview.NumQuestions, interview.CreatedAt, interview.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create interview: %w", err)
	}
	return nil
}

// GetInterview retrieves an interview by ID
func (db *DB) GetInterview(id string) (*DBInterview, error) {
	var interview DBInterview
	var topicID, difficulty sql.NullString
	err := db.db.QueryRow(
		"SELECT id, title, topic_id, source, difficulty, num_questions, created_at, status FROM interviews WHERE id = ?",
		id,
	).Scan(&interview.ID, &interview.Title, &topicID, &interview.Source, &difficulty,
		&interview.NumQuestions, &interview.CreatedAt, &interview.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrInterviewNotFound, id)
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	interview.TopicID = topicID.String
	interview.Difficulty = Difficulty(difficulty.String)
	return &interview, nil
}

// UpdateInterviewStatus updates the status of an interview
func (db *DB) UpdateInterviewStatus(id, status string) error {
	res, err := db.db.Exec("UPDATE interviews SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update interview status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrInterviewNotFound, id)
	}
	return nil
}

// SaveQuestions stores the interview's question list in order, replacing any
// list stored before.
func (db *DB) SaveQuestions(interviewID string, questions []Question) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM questions WHERE interview_id = ?", interviewID); err != nil {
		return fmt.Errorf("failed to clear questions: %w", err)
	}

	for i, q := range questions {
		optionsJSON, err := OptionsToJSON(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO questions (id, interview_id, question_num, text, options, correct_answer, explanation, difficulty) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			uuid.NewString(), interviewID, i+1, q.Text, optionsJSON, q.CorrectAnswerIndex, q.Explanation, string(q.Difficulty),
		)
		if err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
	}

	if _, err := tx.Exec("UPDATE interviews SET num_questions = ?, status = ? WHERE id = ?", len(questions), StatusReady, interviewID); err != nil {
		return fmt.Errorf("failed to update interview: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

// GetQuestions retrieves the question list of an interview in order
func (db *DB) GetQuestions(interviewID string) ([]Question, error) {
	rows, err := db.db.Query(
		"SELECT text, options, correct_answer, explanation, difficulty FROM questions WHERE interview_id = ? ORDER BY question_num",
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var optionsJSON string
		var explanation, difficulty sql.NullString
		if err := rows.Scan(&q.Text, &optionsJSON, &q.CorrectAnswerIndex, &explanation, &difficulty); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.Options, err = JSONToOptions(optionsJSON); err != nil {
			return nil, err
		}
		q.Explanation = explanation.String
		q.Difficulty = Difficulty(difficulty.String)
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// SaveResult records the final tally of an interview and marks it completed
func (db *DB) SaveResult(interviewID string, result Result) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO results (interview_id, score, total, percentage, tier, completed_at) VALUES (?, ?, ?, ?, ?, ?)",
		interviewID, result.Score, result.Total, result.Percentage, string(result.Tier), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	if _, err := tx.Exec("UPDATE interviews SET status = ? WHERE id = ?", StatusCompleted, interviewID); err != nil {
		return fmt.Errorf("failed to update interview status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}
	return nil
}

// History lists finished interviews, newest first, optionally limited by count
func (db *DB) History(limit int) ([]HistoryEntry, error) {
	query := `SELECT i.id, i.title, i.source, i.difficulty, r.score, r.total, r.percentage, r.tier, r.completed_at
		FROM results r JOIN interviews i ON i.id = r.interview_id
		ORDER BY r.completed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var difficulty sql.NullString
		err := rows.Scan(&e.InterviewID, &e.Title, &e.Source, &difficulty,
			&e.Result.Score, &e.Result.Total, &e.Result.Percentage, &e.Result.Tier, &e.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Difficulty = Difficulty(difficulty.String)
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Recorder returns an observer that persists the interview's progress:
// the question list once loaded, the errored status, and the result on
// completion. Storage failures are logged, not returned.
func (db *DB) Recorder(interviewID string) Observer {
	saved := false
	return ObserverFunc(func(state SessionState) {
		switch state.Phase {
		case PhaseReady:
			if saved {
				return
			}
			saved = true
			if err := db.SaveQuestions(interviewID, state.Questions); err != nil {
				log.Printf("Failed to store questions for interview %s: %v", interviewID, err)
			}
		case PhaseErrored:
			if err := db.UpdateInterviewStatus(interviewID, StatusErrored); err != nil {
				log.Printf("Failed to update interview status %s: %v", interviewID, err)
			}
		case PhaseCompleted:
			result := NewResult(state.Score, len(state.Questions))
			if err := db.SaveResult(interviewID, result); err != nil {
				log.Printf("Failed to store result for interview %s: %v", interviewID, err)
			} else {
				log.Printf("Interview %s completed: %d/%d (%d%%)", interviewID, result.Score, result.Total, result.Percentage)
			}
		}
	})
}

// OptionsToJSON converts an options slice to a JSON string
func OptionsToJSON(options []string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// JSONToOptions converts a JSON string to an options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
