package moviequiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionPoolFIFO(t *testing.T) {
	qp := NewQuestionPool()
	assert.True(t, qp.IsEmpty())
	_, _, ok := qp.Next()
	assert.False(t, ok)

	qp.Add(&QuestionItem{ID: "a"})
	qp.Add(&QuestionItem{ID: "b"})
	qp.Add(&QuestionItem{ID: "c"})
	assert.Equal(t, 3, qp.Size())

	q, attempts, ok := qp.Next()
	require.True(t, ok)
	assert.Equal(t, "a", q.ID)
	assert.Zero(t, attempts)

	q, _, _ = qp.Next()
	assert.Equal(t, "b", q.ID)
	assert.Equal(t, 1, qp.Size())
}

func TestQuestionPoolReplaceKeepsPosition(t *testing.T) {
	qp := NewQuestionPool()
	qp.Add(&QuestionItem{ID: "a", Prompt: "old"})
	qp.Add(&QuestionItem{ID: "b"})
	qp.Add(&QuestionItem{ID: "a", Prompt: "new"})
	require.Equal(t, 2, qp.Size())

	q, _, _ := qp.Next()
	assert.Equal(t, "a", q.ID)
	assert.Equal(t, "new", q.Prompt)
}

func TestQuestionPoolRetry(t *testing.T) {
	qp := NewQuestionPool()
	qp.Add(&QuestionItem{ID: "a"})
	qp.Add(&QuestionItem{ID: "b"})

	q, attempts, _ := qp.Next()
	require.True(t, qp.Retry(q, attempts))

	q, _, _ = qp.Next()
	assert.Equal(t, "b", q.ID)

	q, attempts, _ = qp.Next()
	assert.Equal(t, "a", q.ID)
	assert.Equal(t, 1, attempts)
	assert.False(t, qp.Retry(q, attempts), "attempts exhausted")
	assert.True(t, qp.IsEmpty())
}
