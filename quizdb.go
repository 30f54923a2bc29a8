package moviequiz

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrQuizNotFound is returned when no stored quiz has the requested ID
var ErrQuizNotFound = errors.New("quiz not found")

// DB represents a quiz database connection
type DB struct {
	db *sql.DB
}

// DBQuiz represents a stored quiz without its questions
type DBQuiz struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Seed         int64     `json:"seed"`
	Requested    int       `json:"requested"`
	NumQuestions int       `json:"num_questions"`
	Records      int       `json:"records"`
	SkippedRows  int       `json:"skipped_rows"`
	Duplicates   int       `json:"duplicates"`
	Rejected     int       `json:"rejected"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenDB opens a new database connection
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			seed INTEGER NOT NULL,
			requested INTEGER NOT NULL,
			num_questions INTEGER NOT NULL,
			records INTEGER NOT NULL,
			skipped_rows INTEGER NOT NULL,
			duplicates INTEGER NOT NULL DEFAULT 0,
			rejected INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			kind TEXT NOT NULL,
			prompt TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			distractors TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_index INTEGER NOT NULL,
			source_title TEXT NOT NULL,
			PRIMARY KEY (quiz_id, question_num),
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return db.addQuizCountColumns()
}

// addQuizCountColumns upgrades quizzes tables created before the duplicate
// and rejected counts were stored
func (db *DB) addQuizCountColumns() error {
	rows, err := db.db.Query("PRAGMA table_info(quizzes)")
	if err != nil {
		return fmt.Errorf("failed to inspect quizzes table: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating column info: %w", err)
	}
	rows.Close()

	for _, column := range []string{"duplicates", "rejected"} {
		if have[column] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE quizzes ADD COLUMN %s INTEGER NOT NULL DEFAULT 0", column)
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", column, err)
		}
	}
	return nil
}

// SaveQuiz stores a quiz and all of its questions in one transaction
func (db *DB) SaveQuiz(quiz *Quiz) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO quizzes (id, source, seed, requested, num_questions, records, skipped_rows, duplicates, rejected, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		quiz.ID, quiz.Source, quiz.Seed, quiz.Requested, len(quiz.Questions), quiz.Records, quiz.SkippedRows, quiz.Duplicates, quiz.Rejected, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}

	for i, q := range quiz.Questions {
		distractorsJSON, err := OptionsToJSON(q.Distractors)
		if err != nil {
			return err
		}
		optionsJSON, err := OptionsToJSON(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO questions (id, quiz_id, question_num, kind, prompt, correct_answer, distractors, options, correct_index, source_title) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			q.ID, quiz.ID, i+1, string(q.Kind), q.Prompt, q.CorrectAnswer, distractorsJSON, optionsJSON, q.CorrectIndex, q.SourceTitle,
		)
		if err != nil {
			return fmt.Errorf("failed to create question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quiz: %w", err)
	}
	return nil
}

// GetQuiz retrieves a quiz by ID
func (db *DB) GetQuiz(id string) (*DBQuiz, error) {
	var quiz DBQuiz
	err := db.db.QueryRow(
		"SELECT id, source, seed, requested, num_questions, records, skipped_rows, duplicates, rejected, created_at FROM quizzes WHERE id = ?",
		id,
	).Scan(&quiz.ID, &quiz.Source, &quiz.Seed, &quiz.Requested, &quiz.NumQuestions, &quiz.Records, &quiz.SkippedRows, &quiz.Duplicates, &quiz.Rejected, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, id)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return &quiz, nil
}

// GetQuizzes retrieves all quizzes, newest first, optionally limited by count
func (db *DB) GetQuizzes(limit int) ([]DBQuiz, error) {
	query := "SELECT id, source, seed, requested, num_questions, records, skipped_rows, duplicates, rejected, created_at FROM quizzes ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []DBQuiz
	for rows.Next() {
		var quiz DBQuiz
		err := rows.Scan(&quiz.ID, &quiz.Source, &quiz.Seed, &quiz.Requested, &quiz.NumQuestions, &quiz.Records, &quiz.SkippedRows, &quiz.Duplicates, &quiz.Rejected, &quiz.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quizzes: %w", err)
	}

	return quizzes, nil
}

// GetQuestions retrieves all questions for a quiz in generation order
func (db *DB) GetQuestions(quizID string) ([]QuestionItem, error) {
	rows, err := db.db.Query(
		"SELECT id, kind, prompt, correct_answer, distractors, options, correct_index, source_title FROM questions WHERE quiz_id = ? ORDER BY question_num",
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []QuestionItem
	for rows.Next() {
		var (
			q                            QuestionItem
			kind, distractors, optionsJS string
		)
		err := rows.Scan(&q.ID, &kind, &q.Prompt, &q.CorrectAnswer, &distractors, &optionsJS, &q.CorrectIndex, &q.SourceTitle)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Kind = QuestionKind(kind)
		if q.Distractors, err = JSONToOptions(distractors); err != nil {
			return nil, err
		}
		if q.Options, err = JSONToOptions(optionsJS); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// LoadQuiz rebuilds a stored quiz with its questions
func (db *DB) LoadQuiz(id string) (*Quiz, error) {
	stored, err := db.GetQuiz(id)
	if err != nil {
		return nil, err
	}
	questions, err := db.GetQuestions(id)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []QuestionItem{}
	}
	return &Quiz{
		ID:          stored.ID,
		Source:      stored.Source,
		Seed:        stored.Seed,
		Requested:   stored.Requested,
		Questions:   questions,
		Records:     stored.Records,
		SkippedRows: stored.SkippedRows,
		Duplicates:  stored.Duplicates,
		Rejected:    stored.Rejected,
		CreatedAt:   stored.CreatedAt,
	}, nil
}

// OptionsToJSON converts an options slice to a JSON string
func OptionsToJSON(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// JSONToOptions converts a JSON string to an options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	options := []string{}
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
