package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"voxeval/internal/llm"
	"voxeval/internal/queue"
	"voxeval/pkg/cache"
	"voxeval/pkg/logger"
	"voxeval/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

const (
	msgStarted    = "Evaluation is on. Send me a voice message in English and I will score your speaking."
	msgStopped    = "Evaluation is off.\nSend /start to turn it back on."
	msgQueued     = "Got it. Evaluating your recording..."
	msgNoResult   = "There is no evaluation from the last 24 hours. Send a voice message first."
	msgHintsUsage = "Usage: /hints <topic>, for example /hints my favourite city"
	msgNoHints    = "Hints are not available right now. Try again later."
	msgSaveFailed = "Sorry, the recording could not be queued. Please try again."
)

var errVoiceTooLong = errors.New("voice message is too long")

type voiceRequest struct {
	ChatID    int64
	MessageID int64
	FileID    string
	Speaker   string
	Duration  int
	FileSize  int64
	MIME      string
}

func (b *Bot) handleStart(c tele.Context) error {
	chatID := c.Chat().ID
	if err := b.activate(context.Background(), chatID); err != nil {
		logger.Error("Failed to save chat active state to cache", zap.Error(err))
	}

	logger.Info("Bot activated for chat", zap.Int64("chat_id", chatID))
	return c.Send(msgStarted)
}

func (b *Bot) handleStop(c tele.Context) error {
	chatID := c.Chat().ID
	if err := b.deactivate(context.Background(), chatID); err != nil {
		logger.Error("Failed to delete chat active state from cache", zap.Error(err))
	}

	logger.Info("Bot deactivated for chat", zap.Int64("chat_id", chatID))
	return c.Send(msgStopped)
}

func (b *Bot) handleLast(c tele.Context) error {
	summary, err := b.lastSummary(context.Background(), c.Chat().ID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Error("Failed to read last result", zap.Error(err))
		}
		return c.Send(msgNoResult)
	}
	return c.Send(summary.Text())
}

func (b *Bot) lastSummary(ctx context.Context, chatID int64) (*model.EvaluationSummary, error) {
	var summary model.EvaluationSummary
	if err := b.cache.Get(ctx, cache.LastResultCacheKey(chatID), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (b *Bot) handleHints(c tele.Context) error {
	return c.Send(b.hintsText(context.Background(), c.Message().Payload))
}

// hintsText asks for talking points on topic and renders them as a list.
func (b *Bot) hintsText(ctx context.Context, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return msgHintsUsage
	}
	if b.hints == nil {
		return msgNoHints
	}

	points, err := b.hints.Hints(ctx, topic)
	if err != nil || len(points) == 0 {
		if err != nil && !errors.Is(err, llm.ErrUnavailable) {
			logger.Warn("Hint generation failed", zap.String("topic", topic), zap.Error(err))
		}
		return msgNoHints
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ideas for \"%s\":\n", topic)
	for i, p := range points {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return c.Reply("Voice message not found")
	}

	ctx := context.Background()
	if !b.isActive(ctx, msg.Chat.ID) {
		logger.Info("Ignoring voice message from inactive chat",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID))
		return nil
	}

	req := voiceRequest{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		FileID:    msg.Voice.FileID,
		Speaker:   speakerName(msg.Sender),
		Duration:  msg.Voice.Duration,
		FileSize:  int64(msg.Voice.FileSize),
		MIME:      msg.Voice.MIME,
	}

	if _, err := b.enqueue(ctx, req); err != nil {
		if errors.Is(err, errVoiceTooLong) {
			return c.Reply(fmt.Sprintf("Please keep recordings under %d seconds.", b.maxVoiceSeconds))
		}
		return c.Reply(msgSaveFailed)
	}

	return c.Reply(msgQueued)
}

// enqueue stores a task for the voice message and hands it to the worker.
func (b *Bot) enqueue(ctx context.Context, req voiceRequest) (*model.Task, error) {
	if b.maxVoiceSeconds > 0 && req.Duration > b.maxVoiceSeconds {
		return nil, errVoiceTooLong
	}

	now := time.Now()
	task := &model.Task{
		ID:                uuid.New().String(),
		TelegramMessageID: req.MessageID,
		ChatID:            req.ChatID,
		FileID:            req.FileID,
		SpeakerName:       req.Speaker,
		Status:            model.TaskStatusQueued,
		Meta: model.JSONB{
			"voice_duration": req.Duration,
			"file_size":      req.FileSize,
			"mime_type":      req.MIME,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := b.tasks.CreateTask(ctx, task); err != nil {
		logger.Error("Failed to create task in database", zap.Error(err), zap.String("task_id", task.ID))
		return nil, err
	}

	logger.Info("Task created in database",
		zap.String("task_id", task.ID),
		zap.Int64("telegram_message_id", task.TelegramMessageID),
		zap.Int64("chat_id", task.ChatID))

	evalTask := &queue.EvaluationTask{
		TaskID:            task.ID,
		ChatID:            task.ChatID,
		TelegramMessageID: task.TelegramMessageID,
		FileID:            task.FileID,
		SpeakerName:       task.SpeakerName,
		Duration:          req.Duration,
		FileSize:          req.FileSize,
		MimeType:          req.MIME,
		CreatedAt:         task.CreatedAt,
	}
	if err := b.q.PublishTask(ctx, evalTask); err != nil {
		logger.Error("Failed to publish task to queue", zap.Error(err), zap.String("task_id", task.ID))
		return nil, err
	}

	logger.Info("Task published to queue", zap.String("task_id", task.ID))
	return task, nil
}

func speakerName(u *tele.User) string {
	if u == nil {
		return "Speaker"
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	if name == "" {
		return "Speaker"
	}
	return name
}
