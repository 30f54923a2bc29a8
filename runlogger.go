package moviequiz

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLogger writes a per-quiz generation log: loader diagnostics, reviewer
// traffic and the fate of each question
type RunLogger struct {
	file   *os.File
	path   string
	mu     sync.Mutex
	quizID string
}

// NewRunLogger creates the log file <dir>/<quizID>.log and writes its header
func NewRunLogger(dir, quizID string, req GenerationRequest) (*RunLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", quizID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		file:   file,
		path:   filename,
		quizID: quizID,
	}

	logger.Logf("=== Quiz Generation Log ===\n")
	logger.Logf("Quiz ID: %s\n", quizID)
	logger.Logf("Source: %s\n", req.Source)
	logger.Logf("Requested Questions: %d\n", req.Count)
	logger.Logf("Seed: %d\n", req.Seed)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Path returns the log file path
func (rl *RunLogger) Path() string {
	return rl.path
}

// Logf writes a formatted log entry with timestamp
func (rl *RunLogger) Logf(format string, args ...interface{}) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.logf(format, args...)
}

func (rl *RunLogger) logf(format string, args ...interface{}) {
	if rl.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(rl.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	rl.file.Sync()
}

// LogLoad logs the loader outcome, one line per skipped row
func (rl *RunLogger) LogLoad(result *LoadResult) {
	mode := "strict"
	if result.Fallback {
		mode = "permissive"
	}
	rl.Logf("Loaded %d records (%s parse), %d rows skipped\n", len(result.Records), mode, len(result.Skipped))
	for _, s := range result.Skipped {
		rl.Logf("  line %d: %d columns, %s\n", s.Line, s.Columns, s.Reason)
	}
}

// LogLLMRequest logs an LLM request
func (rl *RunLogger) LogLLMRequest(module, prompt string) {
	rl.Logf("=== LLM REQUEST (%s) ===\n", module)
	rl.Logf("Prompt:\n%s\n", prompt)
	rl.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (rl *RunLogger) LogLLMResponse(module, response string) {
	rl.Logf("=== LLM RESPONSE (%s) ===\n", module)
	rl.Logf("Response:\n%s\n", response)
	rl.Logf("======================\n\n")
}

// LogQuestionResult logs the result of processing a question
func (rl *RunLogger) LogQuestionResult(questionID, action, reason string) {
	rl.Logf("Question %s: %s - %s\n", questionID, action, reason)
}

// LogDedupResult logs the result of deduplication
func (rl *RunLogger) LogDedupResult(questionID string, result *DedupResult) {
	if result.IsDuplicate {
		rl.Logf("Question %s: DUPLICATE of %s - %s\n", questionID, result.DuplicateID, result.Reason)
	} else {
		rl.Logf("Question %s: UNIQUE - %s\n", questionID, result.Reason)
	}
}

// Close writes the footer and closes the log file
func (rl *RunLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.file == nil {
		return nil
	}
	rl.logf("=== Quiz Generation Complete ===\n")
	rl.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	rl.logf("=============================\n")
	err := rl.file.Close()
	rl.file = nil
	return err
}
