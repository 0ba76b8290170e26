package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
	"voxeval/internal/llm"
	"voxeval/internal/queue"
	"voxeval/pkg/cache"
	"voxeval/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type MockTaskCreator struct {
	mock.Mock
}

func (m *MockTaskCreator) CreateTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) PublishTask(ctx context.Context, task *queue.EvaluationTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockHints struct {
	mock.Mock
}

func (m *MockHints) Hints(ctx context.Context, topic string) ([]string, error) {
	args := m.Called(ctx, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockCache mocks RedisCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestBot_IsActive(t *testing.T) {
	tests := []struct {
		name     string
		chatID   int64
		setup    func(*MockCache)
		expected bool
	}{
		{
			name:   "chat is active",
			chatID: 123,
			setup: func(mc *MockCache) {
				mc.On("Exists", mock.Anything, "chat:active:123").Return(true, nil)
			},
			expected: true,
		},
		{
			name:   "chat is inactive",
			chatID: 456,
			setup: func(mc *MockCache) {
				mc.On("Exists", mock.Anything, "chat:active:456").Return(false, nil)
			},
			expected: false,
		},
		{
			name:   "cache error",
			chatID: 789,
			setup: func(mc *MockCache) {
				mc.On("Exists", mock.Anything, "chat:active:789").Return(false, errors.New("connection refused"))
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := new(MockCache)
			tt.setup(mockCache)

			b := &Bot{cache: mockCache}

			assert.Equal(t, tt.expected, b.isActive(context.Background(), tt.chatID))
			mockCache.AssertExpectations(t)
		})
	}
}

func TestBot_ActivateDeactivate(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("SetWithTTL", mock.Anything, "chat:active:42", "true", cache.ChatActiveTTL).Return(nil)
	mockCache.On("Delete", mock.Anything, "chat:active:42").Return(nil)

	b := &Bot{cache: mockCache}
	require.NoError(t, b.activate(context.Background(), 42))
	require.NoError(t, b.deactivate(context.Background(), 42))

	mockCache.AssertExpectations(t)
}

func testRequest() voiceRequest {
	return voiceRequest{
		ChatID:    123,
		MessageID: 7,
		FileID:    "file-123",
		Speaker:   "Ann Lee",
		Duration:  42,
		FileSize:  2048,
		MIME:      "audio/ogg",
	}
}

func TestBot_Enqueue(t *testing.T) {
	tasks := new(MockTaskCreator)
	q := new(MockQueue)

	var created *model.Task
	tasks.On("CreateTask", mock.Anything, mock.AnythingOfType("*model.Task")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Task) }).
		Return(nil)
	q.On("PublishTask", mock.Anything, mock.MatchedBy(func(et *queue.EvaluationTask) bool {
		return et.TaskID == created.ID &&
			et.ChatID == 123 &&
			et.TelegramMessageID == 7 &&
			et.FileID == "file-123" &&
			et.SpeakerName == "Ann Lee" &&
			et.Duration == 42 &&
			et.FileSize == 2048 &&
			et.MimeType == "audio/ogg"
	})).Return(nil)

	b := &Bot{tasks: tasks, q: q, maxVoiceSeconds: 300}

	task, err := b.enqueue(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskStatusQueued, task.Status)
	assert.Equal(t, "Ann Lee", task.SpeakerName)
	assert.Equal(t, 42, task.Meta["voice_duration"])
	assert.Equal(t, "audio/ogg", task.Meta["mime_type"])

	tasks.AssertExpectations(t)
	q.AssertExpectations(t)
}

func TestBot_Enqueue_TooLong(t *testing.T) {
	tasks := new(MockTaskCreator)
	q := new(MockQueue)
	b := &Bot{tasks: tasks, q: q, maxVoiceSeconds: 30}

	_, err := b.enqueue(context.Background(), testRequest())
	assert.ErrorIs(t, err, errVoiceTooLong)

	tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
	q.AssertNotCalled(t, "PublishTask", mock.Anything, mock.Anything)
}

func TestBot_Enqueue_CreateFails(t *testing.T) {
	tasks := new(MockTaskCreator)
	q := new(MockQueue)
	dbErr := errors.New("database is down")
	tasks.On("CreateTask", mock.Anything, mock.Anything).Return(dbErr)

	b := &Bot{tasks: tasks, q: q}

	_, err := b.enqueue(context.Background(), testRequest())
	assert.ErrorIs(t, err, dbErr)
	q.AssertNotCalled(t, "PublishTask", mock.Anything, mock.Anything)
}

func TestBot_Enqueue_PublishFails(t *testing.T) {
	tasks := new(MockTaskCreator)
	q := new(MockQueue)
	queueErr := errors.New("queue connection failed")
	tasks.On("CreateTask", mock.Anything, mock.Anything).Return(nil)
	q.On("PublishTask", mock.Anything, mock.Anything).Return(queueErr)

	b := &Bot{tasks: tasks, q: q}

	_, err := b.enqueue(context.Background(), testRequest())
	assert.ErrorIs(t, err, queueErr)
}

func TestBot_LastSummary(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockCache := new(MockCache)
		mockCache.On("Get", mock.Anything, "chat:last:5", mock.AnythingOfType("*model.EvaluationSummary")).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*model.EvaluationSummary)
				dest.TaskID = "task-1"
				dest.Scores = []model.ScoreLine{{Name: "overall", Score: 72.5, Level: "B2"}}
			}).
			Return(nil)

		b := &Bot{cache: mockCache}
		summary, err := b.lastSummary(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "task-1", summary.TaskID)
		assert.Contains(t, summary.Text(), "Overall: 72.50 (B2)")
	})

	t.Run("missing", func(t *testing.T) {
		mockCache := new(MockCache)
		mockCache.On("Get", mock.Anything, "chat:last:5", mock.Anything).
			Return(fmt.Errorf("key chat:last:5: %w", cache.ErrNotFound))

		b := &Bot{cache: mockCache}
		_, err := b.lastSummary(context.Background(), 5)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})
}

func TestBot_HintsText(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		setup    func(*MockHints)
		expected string
	}{
		{
			name:     "empty topic",
			topic:    "   ",
			setup:    func(*MockHints) {},
			expected: msgHintsUsage,
		},
		{
			name:  "points",
			topic: " travel ",
			setup: func(m *MockHints) {
				m.On("Hints", mock.Anything, "travel").Return([]string{"Your last trip", "Dream destination"}, nil)
			},
			expected: "Ideas for \"travel\":\n1. Your last trip\n2. Dream destination",
		},
		{
			name:  "generator unavailable",
			topic: "travel",
			setup: func(m *MockHints) {
				m.On("Hints", mock.Anything, "travel").Return(nil, llm.ErrUnavailable)
			},
			expected: msgNoHints,
		},
		{
			name:  "generator failed",
			topic: "travel",
			setup: func(m *MockHints) {
				m.On("Hints", mock.Anything, "travel").Return(nil, errors.New("quota exceeded"))
			},
			expected: msgNoHints,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := new(MockHints)
			tt.setup(hints)

			b := &Bot{hints: hints}
			assert.Equal(t, tt.expected, b.hintsText(context.Background(), tt.topic))
			hints.AssertExpectations(t)
		})
	}
}

func TestBot_HintsText_NoSource(t *testing.T) {
	b := &Bot{}
	assert.Equal(t, msgNoHints, b.hintsText(context.Background(), "travel"))
}

func TestSpeakerName(t *testing.T) {
	assert.Equal(t, "Speaker", speakerName(nil))
	assert.Equal(t, "Ann Lee", speakerName(&tele.User{FirstName: "Ann", LastName: "Lee"}))
	assert.Equal(t, "Ann", speakerName(&tele.User{FirstName: "Ann"}))
	assert.Equal(t, "annlee", speakerName(&tele.User{Username: "annlee"}))
	assert.Equal(t, "Speaker", speakerName(&tele.User{}))
}
