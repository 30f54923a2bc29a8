package moviequiz

import (
	"fmt"
	"strings"
)

// QuestionDedup drops questions that repeat an earlier question's wording.
// Duplicate titles in a dataset are the usual cause: two "Up" rows yield
// two identical prompts with different answers.
type QuestionDedup struct {
	cache map[string]string // question key -> ID of the first question seen
}

// NewQuestionDedup creates a new question deduplicator
func NewQuestionDedup() *QuestionDedup {
	return &QuestionDedup{
		cache: make(map[string]string),
	}
}

// DedupResult represents the result of deduplication
type DedupResult struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Reason      string `json:"reason"`
	DuplicateID string `json:"duplicate_id,omitempty"` // ID of the earlier question if found
}

// CheckDuplicate checks if a question repeats a previously accepted question.
// Unique questions are remembered for later checks.
func (qd *QuestionDedup) CheckDuplicate(question *QuestionItem) *DedupResult {
	key := dedupKey(question)
	if existingID, exists := qd.cache[key]; exists {
		VerboseLog("Question %s duplicates %s", question.ID, existingID)
		return &DedupResult{
			IsDuplicate: true,
			Reason:      fmt.Sprintf("same %s question already asked", question.Kind),
			DuplicateID: existingID,
		}
	}

	qd.cache[key] = question.ID
	if len(qd.cache) == 1 {
		return &DedupResult{IsDuplicate: false, Reason: "First question"}
	}
	return &DedupResult{IsDuplicate: false, Reason: "No earlier question with this prompt"}
}

// Size returns the number of unique questions seen
func (qd *QuestionDedup) Size() int {
	return len(qd.cache)
}

func dedupKey(question *QuestionItem) string {
	prompt := strings.Join(strings.Fields(strings.ToLower(question.Prompt)), " ")
	return string(question.Kind) + "\x00" + prompt
}
