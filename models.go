package moviequiz

import (
	"fmt"
	"strings"
	"time"
)

// MovieRecord represents one normalized row of the movie dataset.
// Optional attributes are nil when the source had no usable value.
type MovieRecord struct {
	Title     string   `json:"title"`
	Year      *int     `json:"year,omitempty"`
	Director  *string  `json:"director,omitempty"`
	LeadActor *string  `json:"lead_actor,omitempty"`
	Genres    []string `json:"genres"`
	Rating    *float64 `json:"rating,omitempty"`
	Line      int      `json:"line"` // 1-based line in the source
}

// HasKind reports whether the record carries a value for the given question kind
func (m MovieRecord) HasKind(kind QuestionKind) bool {
	switch kind {
	case KindYear:
		return m.Year != nil
	case KindLeadActor:
		return m.LeadActor != nil
	case KindDirector:
		return m.Director != nil
	case KindGenre:
		return len(m.Genres) > 0
	}
	return false
}

// QuestionKind identifies which record attribute a question asks about
type QuestionKind string

const (
	KindYear      QuestionKind = "year"
	KindLeadActor QuestionKind = "lead_actor"
	KindDirector  QuestionKind = "director"
	KindGenre     QuestionKind = "genre"
)

// AllKinds lists every supported question kind in canonical order
var AllKinds = []QuestionKind{KindYear, KindLeadActor, KindDirector, KindGenre}

// ParseQuestionKind maps a kind name or one of its synonyms to a QuestionKind
func ParseQuestionKind(s string) (QuestionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "year", "release_year":
		return KindYear, nil
	case "lead_actor", "actor", "main_actor", "lead":
		return KindLeadActor, nil
	case "director":
		return KindDirector, nil
	case "genre", "genres":
		return KindGenre, nil
	}
	return "", fmt.Errorf("unknown question kind %q", s)
}

// QuestionItem represents a single generated multiple choice question.
// Options holds the presentation order; CorrectAnswer and Distractors keep
// the answer separation regardless of that order.
type QuestionItem struct {
	ID            string       `json:"id"`
	Kind          QuestionKind `json:"kind"`
	Prompt        string       `json:"prompt"`
	CorrectAnswer string       `json:"correct_answer"`
	Distractors   []string     `json:"distractors"`
	Options       []string     `json:"options"`
	CorrectIndex  int          `json:"correct_index"` // 0-based index into Options
	SourceTitle   string       `json:"source_title"`
}

// SkippedRow describes an input row the loader could not turn into a record
type SkippedRow struct {
	Line    int    `json:"line"`
	Columns int    `json:"columns"`
	Reason  string `json:"reason"`
}

// LoadResult is the outcome of loading a dataset
type LoadResult struct {
	Header   []string      `json:"header"`
	Records  []MovieRecord `json:"records"`
	Skipped  []SkippedRow  `json:"skipped"`
	Fallback bool          `json:"fallback"` // permissive parser was used
}

// Quiz represents a generated question set with its provenance
type Quiz struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Seed        int64          `json:"seed"`
	Requested   int            `json:"requested"`
	Questions   []QuestionItem `json:"questions"`
	Records     int            `json:"records"`
	SkippedRows int            `json:"skipped_rows"`
	Duplicates  int            `json:"duplicates"`
	Rejected    int            `json:"rejected"`
	CreatedAt   time.Time      `json:"created_at"`
}

// GenerationRequest represents a request to generate a quiz
type GenerationRequest struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Seed   int64  `json:"seed"`
}

// ValidationResult represents the reviewer's verdict on one question
type ValidationResult struct {
	QuestionID string           `json:"question_id"`
	Action     ValidationAction `json:"action"`
	Reason     string           `json:"reason"`
}

// ValidationAction represents what the reviewer decided to do
type ValidationAction string

const (
	ActionAccept ValidationAction = "accept"
	ActionReject ValidationAction = "reject"
)

// DataSourceError is returned when a dataset cannot be obtained or has no
// usable header. Malformed rows never produce it.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("data source: %v", e.Err)
	}
	return fmt.Sprintf("data source %q: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
