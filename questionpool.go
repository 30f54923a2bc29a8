package moviequiz

import "sync"

// maxReviewAttempts bounds how often one question is sent to the reviewer
const maxReviewAttempts = 2

type poolEntry struct {
	item     *QuestionItem
	attempts int // failed review attempts so far
}

// QuestionPool is the FIFO queue of questions waiting for review. Questions
// whose review failed go back to the tail with their attempt count.
type QuestionPool struct {
	mu      sync.Mutex
	entries []poolEntry
}

// NewQuestionPool creates a new question pool
func NewQuestionPool() *QuestionPool {
	return &QuestionPool{entries: make([]poolEntry, 0)}
}

// Add queues a question for its first review. A question already queued
// under the same ID is replaced in place and keeps its attempt count.
func (qp *QuestionPool) Add(question *QuestionItem) {
	qp.mu.Lock()
	defer qp.mu.Unlock()

	for i := range qp.entries {
		if qp.entries[i].item.ID == question.ID {
			qp.entries[i].item = question
			return
		}
	}
	qp.entries = append(qp.entries, poolEntry{item: question})
}

// Next removes and returns the question at the head of the queue together
// with its failed attempt count. ok is false when the pool is empty.
func (qp *QuestionPool) Next() (question *QuestionItem, attempts int, ok bool) {
	qp.mu.Lock()
	defer qp.mu.Unlock()

	if len(qp.entries) == 0 {
		return nil, 0, false
	}
	head := qp.entries[0]
	qp.entries = qp.entries[1:]
	return head.item, head.attempts, true
}

// Retry puts a question whose review failed back at the tail. It reports
// false, leaving the pool unchanged, once the question has used up
// maxReviewAttempts.
func (qp *QuestionPool) Retry(question *QuestionItem, attempts int) bool {
	attempts++
	if attempts >= maxReviewAttempts {
		return false
	}
	qp.mu.Lock()
	defer qp.mu.Unlock()
	qp.entries = append(qp.entries, poolEntry{item: question, attempts: attempts})
	return true
}

// Size returns the number of questions in the pool
func (qp *QuestionPool) Size() int {
	qp.mu.Lock()
	defer qp.mu.Unlock()
	return len(qp.entries)
}

// IsEmpty returns true if the pool is empty
func (qp *QuestionPool) IsEmpty() bool {
	return qp.Size() == 0
}
