package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(status TaskStatus) *Task {
	return &Task{
		ID:        "test-id",
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestTask_SetInProgress(t *testing.T) {
	task := newTask(TaskStatusQueued)

	task.SetInProgress("op-123")

	assert.Equal(t, TaskStatusInProgress, task.Status)
	require.NotNil(t, task.OperationID)
	assert.Equal(t, "op-123", *task.OperationID)

	task.SetInProgress("")
	assert.Equal(t, "op-123", *task.OperationID)
}

func TestTask_SetCompleted(t *testing.T) {
	task := newTask(TaskStatusFailed)
	task.ErrorText = new(string)

	task.SetCompleted("eval-1")

	assert.Equal(t, TaskStatusDone, task.Status)
	assert.Nil(t, task.ErrorText)
	require.NotNil(t, task.EvaluationID)
	assert.Equal(t, "eval-1", *task.EvaluationID)
	assert.True(t, task.IsCompleted())
}

func TestTask_RetryLifecycle(t *testing.T) {
	task := newTask(TaskStatusInProgress)

	for i := 1; i < MaxAttempts; i++ {
		task.SetError("boom")
		task.IncrementAttempts()
		assert.True(t, task.CanRetry(), "attempt %d", i)
		assert.False(t, task.IsCompleted(), "attempt %d", i)
	}

	task.SetError("boom")
	task.IncrementAttempts()
	assert.False(t, task.CanRetry())
	assert.True(t, task.IsCompleted())
	require.NotNil(t, task.ErrorText)
	assert.Equal(t, "boom", *task.ErrorText)
}

func TestTask_SetAbandoned(t *testing.T) {
	task := newTask(TaskStatusInProgress)

	task.SetAbandoned("no speech")

	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.False(t, task.CanRetry())
	assert.True(t, task.IsCompleted())
}

func TestJSONB_ValueAndScan(t *testing.T) {
	v, err := JSONB{"mime_type": "audio/ogg"}.Value()
	require.NoError(t, err)

	var back JSONB
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "audio/ogg", back["mime_type"])

	require.NoError(t, back.Scan(nil))
	assert.Nil(t, back)

	assert.Error(t, back.Scan(42))
}

func TestEvaluationSummary_Text(t *testing.T) {
	s := EvaluationSummary{
		Scores: []ScoreLine{
			{Name: "overall", Score: 72.5, Level: "B2"},
			{Name: "filler_words", Score: 85.71, Level: "C2"},
		},
		SummaryPoints: []string{"Good pace.", "Watch articles."},
		Mispronounced: []string{"have", "apple"},
		Warnings:      []string{"PDF report generation failed, but scores are available."},
	}

	text := s.Text()

	assert.Contains(t, text, "Overall: 72.50 (B2)")
	assert.Contains(t, text, "Filler words: 85.71 (C2)")
	assert.Contains(t, text, "1. Good pace.\n2. Watch articles.")
	assert.Contains(t, text, "Words to practise: have, apple")
	assert.Contains(t, text, "Note: PDF report generation failed")
}

func TestEvaluationSummary_TextMinimal(t *testing.T) {
	s := EvaluationSummary{Scores: []ScoreLine{{Name: "overall", Score: 10, Level: "A1"}}}

	text := s.Text()

	assert.Equal(t, "Speaking evaluation\n\nOverall: 10.00 (A1)", text)
}
