package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusFailed     TaskStatus = "failed"
)

// MaxAttempts bounds how often a failed evaluation task is retried.
const MaxAttempts = 3

// JSONB represents a JSONB field for PostgreSQL
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported JSONB source %T", value)
	}

	return json.Unmarshal(bytes, j)
}

// Task is one voice message waiting for or undergoing evaluation.
type Task struct {
	ID                string     `json:"id" db:"id"`
	TelegramMessageID int64      `json:"telegram_message_id" db:"telegram_message_id"`
	ChatID            int64      `json:"chat_id" db:"chat_id"`
	FileID            string     `json:"file_id" db:"file_id"`
	SpeakerName       string     `json:"speaker_name" db:"speaker_name"`
	Status            TaskStatus `json:"status" db:"status"`
	OperationID       *string    `json:"operation_id,omitempty" db:"operation_id"`
	EvaluationID      *string    `json:"evaluation_id,omitempty" db:"evaluation_id"`
	Attempts          int        `json:"attempts" db:"attempts"`
	ErrorText         *string    `json:"error_text,omitempty" db:"error_text"`
	Meta              JSONB      `json:"meta" db:"meta"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Transcript is the recognition result of a task. Segments holds the
// time-aligned transcript as JSON.
type Transcript struct {
	ID          string          `json:"id" db:"id"`
	TaskID      string          `json:"task_id" db:"task_id"`
	Language    string          `json:"language" db:"language"`
	Text        string          `json:"text" db:"text"`
	Segments    json.RawMessage `json:"segments,omitempty" db:"segments"`
	RawResponse json.RawMessage `json:"raw_response,omitempty" db:"raw_response"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IsCompleted returns true if the task is in a final state
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusDone || (t.Status == TaskStatusFailed && !t.CanRetry())
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Status == TaskStatusFailed && t.Attempts < MaxAttempts
}

// IncrementAttempts increases the attempt counter
func (t *Task) IncrementAttempts() {
	t.Attempts++
}

// SetError sets the task status to failed with error message
func (t *Task) SetError(errorText string) {
	t.Status = TaskStatusFailed
	t.ErrorText = &errorText
	t.UpdatedAt = time.Now()
}

// SetAbandoned fails the task for good, regardless of attempts left.
func (t *Task) SetAbandoned(errorText string) {
	t.SetError(errorText)
	t.Attempts = MaxAttempts
}

// SetCompleted sets the task status to done
func (t *Task) SetCompleted(evaluationID string) {
	t.Status = TaskStatusDone
	t.EvaluationID = &evaluationID
	t.ErrorText = nil
	t.UpdatedAt = time.Now()
}

// SetInProgress sets the task status to in progress with operation ID
func (t *Task) SetInProgress(operationID string) {
	t.Status = TaskStatusInProgress
	if operationID != "" {
		t.OperationID = &operationID
	}
	t.UpdatedAt = time.Now()
}

// ScoreLine is one rubric value of a finished evaluation.
type ScoreLine struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

// EvaluationSummary is what a chat gets back after an evaluation and what
// /last shows again while it is cached.
type EvaluationSummary struct {
	EvaluationID  string      `json:"evaluation_id"`
	TaskID        string      `json:"task_id"`
	Scores        []ScoreLine `json:"scores"`
	SummaryPoints []string    `json:"summary_points"`
	Mispronounced []string    `json:"mispronounced"`
	ReportName    string      `json:"report_name,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Text renders the summary as a plain chat message.
func (s *EvaluationSummary) Text() string {
	var b strings.Builder

	b.WriteString("Speaking evaluation\n\n")
	for _, line := range s.Scores {
		fmt.Fprintf(&b, "%s: %.2f (%s)\n", displayName(line.Name), line.Score, line.Level)
	}

	if len(s.SummaryPoints) > 0 {
		b.WriteString("\nFeedback\n")
		for i, p := range s.SummaryPoints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}

	if len(s.Mispronounced) > 0 {
		fmt.Fprintf(&b, "\nWords to practise: %s\n", strings.Join(s.Mispronounced, ", "))
	}

	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "\nNote: %s", w)
	}

	return strings.TrimRight(b.String(), "\n")
}

func displayName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
