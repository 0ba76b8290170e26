package bot

import (
	"context"
	"errors"
	"time"
	"voxeval/internal/config"
	"voxeval/internal/queue"
	"voxeval/pkg/cache"
	"voxeval/pkg/logger"
	"voxeval/pkg/model"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"
)

type TaskCreator interface {
	CreateTask(ctx context.Context, task *model.Task) error
}

type QueuePublisher interface {
	PublishTask(ctx context.Context, task *queue.EvaluationTask) error
}

// HintSource suggests talking points for a practice topic.
type HintSource interface {
	Hints(ctx context.Context, topic string) ([]string, error)
}

type Bot struct {
	tb    *tele.Bot
	tasks TaskCreator
	q     QueuePublisher
	cache cache.Cache
	hints HintSource

	maxVoiceSeconds int
}

func NewBot(cfg *config.Config, tasks TaskCreator, q QueuePublisher, c cache.Cache, hints HintSource) (*Bot, error) {
	logger.Info("Starting bot initialization")

	if cfg.Telegram.Token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	tb, err := tele.NewBot(tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Bot created successfully")

	bot := &Bot{
		tb:              tb,
		tasks:           tasks,
		q:               q,
		cache:           c,
		hints:           hints,
		maxVoiceSeconds: cfg.Telegram.MaxVoiceSeconds,
	}

	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/stop", b.handleStop)
	b.tb.Handle("/last", b.handleLast)
	b.tb.Handle("/hints", b.handleHints)
	b.tb.Handle(tele.OnVoice, b.handleVoice)
}

// activate enables evaluation of voice messages for the chat
func (b *Bot) activate(ctx context.Context, chatID int64) error {
	return b.cache.SetWithTTL(ctx, cache.ChatActiveCacheKey(chatID), "true", cache.ChatActiveTTL)
}

// deactivate disables evaluation of voice messages for the chat
func (b *Bot) deactivate(ctx context.Context, chatID int64) error {
	return b.cache.Delete(ctx, cache.ChatActiveCacheKey(chatID))
}

// isActive reports whether the chat has sent /start. A cache failure counts
// as inactive.
func (b *Bot) isActive(ctx context.Context, chatID int64) bool {
	active, err := b.cache.Exists(ctx, cache.ChatActiveCacheKey(chatID))
	if err != nil {
		logger.Warn("Failed to read chat state", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	return active
}

func (b *Bot) Start() {
	logger.Info("Bot started")
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}
