package queue

import "time"

// EvaluationTask asks the worker to evaluate one voice message.
type EvaluationTask struct {
	TaskID            string    `json:"task_id"`
	ChatID            int64     `json:"chat_id"`
	TelegramMessageID int64     `json:"telegram_message_id"`
	FileID            string    `json:"file_id"`
	SpeakerName       string    `json:"speaker_name"`
	Duration          int       `json:"duration"`
	FileSize          int64     `json:"file_size"`
	MimeType          string    `json:"mime_type"`
	CreatedAt         time.Time `json:"created_at"`
}
