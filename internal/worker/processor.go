package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"voxeval/internal/audio"
	"voxeval/internal/pipeline"
	"voxeval/internal/queue"
	"voxeval/internal/speechkit"
	"voxeval/internal/storage"
	"voxeval/internal/transcript"
	"voxeval/pkg/cache"
	"voxeval/pkg/logger"
	"voxeval/pkg/model"
	"voxeval/pkg/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	msgNoSpeech = "I could not hear any speech in this voice message. Please try again."
	msgFailed   = "Sorry, this voice message could not be evaluated after several attempts."
)

type TaskStore interface {
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	CreateTranscript(ctx context.Context, transcript *model.Transcript) error
	GetTranscriptByTaskID(ctx context.Context, taskID string) (*model.Transcript, error)
}

// ObjectStore holds source recordings while recognition runs.
type ObjectStore interface {
	GenerateKey(taskID, extension string) string
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type Recognizer interface {
	StartRecognition(ctx context.Context, uri string) (string, error)
	WaitForResult(ctx context.Context, operationID string) (*speechkit.RecognitionResult, error)
}

type Transcoder interface {
	ToWAV(ctx context.Context, input, output string) error
}

type Evaluator interface {
	Evaluate(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// Messenger talks to the chat the voice message came from.
type Messenger interface {
	Download(ctx context.Context, fileID string, w io.Writer) error
	Reply(ctx context.Context, chatID, replyTo int64, text string) error
	SendDocument(ctx context.Context, chatID, replyTo int64, filename string, data []byte) error
}

type Deps struct {
	Tasks      TaskStore
	Objects    ObjectStore
	Recognizer Recognizer
	Transcoder Transcoder
	Evaluator  Evaluator
	Messenger  Messenger
	Cache      cache.Cache

	Locale      string
	TempDir     string
	TaskTimeout time.Duration
}

type Processor struct {
	tasks      TaskStore
	objects    ObjectStore
	recognizer Recognizer
	transcoder Transcoder
	evaluator  Evaluator
	messenger  Messenger
	cache      cache.Cache

	locale  string
	tempDir string
	timeout time.Duration
}

// NewProcessor creates a new worker processor
func NewProcessor(deps Deps) *Processor {
	locale := deps.Locale
	if locale == "" {
		locale = speechkit.DefaultLocale
	}
	return &Processor{
		tasks:      deps.Tasks,
		objects:    deps.Objects,
		recognizer: deps.Recognizer,
		transcoder: deps.Transcoder,
		evaluator:  deps.Evaluator,
		messenger:  deps.Messenger,
		cache:      deps.Cache,
		locale:     locale,
		tempDir:    deps.TempDir,
		timeout:    deps.TaskTimeout,
	}
}

// ProcessTask evaluates one queued voice message and replies with the
// scores and the PDF report. Errors wrapped in resilience.Permanent must
// not be retried.
func (p *Processor) ProcessTask(ctx context.Context, body []byte) error {
	var msg queue.EvaluationTask
	if err := json.Unmarshal(body, &msg); err != nil {
		return resilience.Permanent(fmt.Errorf("failed to unmarshal task: %w", err))
	}

	log := logger.With(zap.String("task_id", msg.TaskID), zap.Int64("chat_id", msg.ChatID))
	log.Info("Processing evaluation task")

	task, err := p.tasks.GetTaskByID(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return resilience.Permanent(err)
		}
		return fmt.Errorf("failed to get task from db: %w", err)
	}
	if task.IsCompleted() {
		log.Info("Task already completed, skipping", zap.String("status", string(task.Status)))
		return nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	task.SetInProgress("")
	if err := p.tasks.UpdateTask(ctx, task); err != nil {
		log.Error("Failed to update task status", zap.Error(err))
	}

	res, err := p.evaluate(ctx, task, log)
	if err != nil {
		return p.handleTaskError(ctx, task, err, log)
	}

	p.deliver(ctx, task, res, log)

	task.SetCompleted(res.EvaluationID)
	if err := p.tasks.UpdateTask(context.WithoutCancel(ctx), task); err != nil {
		log.Error("Failed to update task status to done", zap.Error(err))
	}

	log.Info("Task completed successfully", zap.String("evaluation_id", res.EvaluationID))
	return nil
}

// evaluate runs recognition and transcoding side by side in a private
// work dir, then scores the recording.
func (p *Processor) evaluate(ctx context.Context, task *model.Task, log *zap.Logger) (*pipeline.Result, error) {
	scope, err := audio.NewScope(p.tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := scope.Close(); err != nil {
			log.Warn("Failed to remove work dir", zap.Error(err))
		}
	}()

	voicePath := scope.Path("voice.ogg")
	if err := p.download(ctx, task.FileID, voicePath); err != nil {
		return nil, err
	}

	var (
		tr    *transcript.Transcript
		track *audio.Track
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tr, err = p.recognize(gctx, task, voicePath, log)
		return err
	})
	g.Go(func() error {
		track = p.decode(gctx, voicePath, scope.Path("voice.wav"), log)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := pipeline.Input{Name: task.SpeakerName, Transcript: tr}
	if track != nil {
		in.Audio = track
	}

	res, err := p.evaluator.Evaluate(ctx, in)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSpeech) {
			return nil, resilience.Permanent(err)
		}
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return res, nil
}

func (p *Processor) download(ctx context.Context, fileID, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create voice file: %w", err)
	}
	defer f.Close()

	if err := p.messenger.Download(ctx, fileID, f); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	return nil
}

// recognize returns the transcript of the voice file. A transcript stored
// by an earlier attempt is reused.
func (p *Processor) recognize(ctx context.Context, task *model.Task, voicePath string, log *zap.Logger) (*transcript.Transcript, error) {
	if tr := p.storedTranscript(ctx, task.ID, log); tr != nil {
		log.Info("Reusing transcript from earlier attempt")
		return tr, nil
	}

	f, err := os.Open(voicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open voice file: %w", err)
	}
	defer f.Close()

	key := p.objects.GenerateKey(task.ID, ".ogg")
	url, err := p.objects.UploadFile(ctx, key, f, "audio/ogg")
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}
	defer func() {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := p.objects.DeleteFile(delCtx, key); err != nil {
			log.Warn("Failed to delete source audio", zap.String("key", key), zap.Error(err))
		}
	}()

	operationID, err := p.recognizer.StartRecognition(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to start recognition: %w", err)
	}

	task.SetInProgress(operationID)
	if err := p.tasks.UpdateTask(ctx, task); err != nil {
		log.Error("Failed to update operation_id", zap.Error(err))
	}
	log.Info("Recognition started", zap.String("operation_id", operationID))

	result, err := p.recognizer.WaitForResult(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	tr, err := result.ToTranscript(p.locale)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("malformed recognition result: %w", err))
	}
	if tr.IsEmpty() {
		return nil, resilience.Permanent(pipeline.ErrNoSpeech)
	}

	p.saveTranscript(ctx, task.ID, tr, result, log)
	return tr, nil
}

func (p *Processor) storedTranscript(ctx context.Context, taskID string, log *zap.Logger) *transcript.Transcript {
	stored, err := p.tasks.GetTranscriptByTaskID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("Failed to look up stored transcript", zap.Error(err))
		}
		return nil
	}
	if len(stored.Segments) == 0 {
		return nil
	}

	var tr transcript.Transcript
	if err := json.Unmarshal(stored.Segments, &tr); err != nil {
		log.Warn("Stored transcript is unreadable", zap.Error(err))
		return nil
	}
	if tr.IsEmpty() {
		return nil
	}
	return &tr
}

func (p *Processor) saveTranscript(ctx context.Context, taskID string, tr *transcript.Transcript, result *speechkit.RecognitionResult, log *zap.Logger) {
	segments, err := json.Marshal(tr)
	if err != nil {
		log.Error("Failed to encode transcript", zap.Error(err))
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		log.Error("Failed to encode recognition result", zap.Error(err))
		return
	}

	record := &model.Transcript{
		ID:          uuid.New().String(),
		TaskID:      taskID,
		Language:    tr.Language,
		Text:        tr.FullText(),
		Segments:    segments,
		RawResponse: raw,
		CreatedAt:   time.Now(),
	}
	if err := p.tasks.CreateTranscript(ctx, record); err != nil {
		log.Error("Failed to save transcript", zap.Error(err))
	}
}

// decode converts the voice file into PCM WAV. Without a decodable track
// the evaluation still runs; pronunciation and vocalized fillers degrade.
func (p *Processor) decode(ctx context.Context, src, dst string, log *zap.Logger) *audio.Track {
	if p.transcoder == nil {
		return nil
	}
	if err := p.transcoder.ToWAV(ctx, src, dst); err != nil {
		log.Warn("Transcoding failed, evaluating without audio", zap.Error(err))
		return nil
	}

	track, err := audio.Open(dst)
	if err != nil {
		log.Warn("Decoding failed, evaluating without audio", zap.Error(err))
		return nil
	}
	return track
}

// deliver sends the results to the chat and caches them for /last.
// Delivery failures are logged; the evaluation itself succeeded.
func (p *Processor) deliver(ctx context.Context, task *model.Task, res *pipeline.Result, log *zap.Logger) {
	summary := Summarize(task.ID, res)

	if err := p.messenger.Reply(ctx, task.ChatID, task.TelegramMessageID, summary.Text()); err != nil {
		log.Error("Failed to send result to user", zap.Error(err))
	}

	if res.Report != nil {
		if err := p.messenger.SendDocument(ctx, task.ChatID, task.TelegramMessageID, res.Report.Filename, res.Report.Data); err != nil {
			log.Error("Failed to send report to user", zap.Error(err))
		}
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, cache.LastResultCacheKey(task.ChatID), summary); err != nil {
			log.Warn("Failed to cache result", zap.Error(err))
		}
	}
}

// Summarize condenses a result into what the chat is shown.
func Summarize(taskID string, res *pipeline.Result) *model.EvaluationSummary {
	summary := &model.EvaluationSummary{
		EvaluationID:  res.EvaluationID,
		TaskID:        taskID,
		SummaryPoints: res.SummaryPoints,
		Warnings:      res.Warnings,
		CreatedAt:     time.Now(),
	}
	for _, s := range res.Scores.List() {
		summary.Scores = append(summary.Scores, model.ScoreLine{Name: s.Name, Score: s.Score, Level: string(s.Level)})
	}
	for _, w := range res.Mispronounced {
		summary.Mispronounced = append(summary.Mispronounced, w.Word)
	}
	if res.Report != nil {
		summary.ReportName = res.Report.Filename
	}
	return summary
}

// handleTaskError records the failure. Interrupted tasks go back to the
// queue untouched; exhausted or permanent failures notify the user and are
// reported as permanent so the message is dropped.
func (p *Processor) handleTaskError(ctx context.Context, task *model.Task, err error, log *zap.Logger) error {
	bg := context.WithoutCancel(ctx)

	if errors.Is(err, context.Canceled) {
		log.Warn("Task interrupted, returning to queue", zap.Error(err))
		task.Status = model.TaskStatusQueued
		task.UpdatedAt = time.Now()
		if updErr := p.tasks.UpdateTask(bg, task); updErr != nil {
			log.Error("Failed to requeue task", zap.Error(updErr))
		}
		return err
	}

	log.Error("Task processing error", zap.Error(err), zap.Int("attempt", task.Attempts+1))

	task.SetError(err.Error())
	task.IncrementAttempts()
	if resilience.IsPermanent(err) {
		task.SetAbandoned(err.Error())
	}

	if updErr := p.tasks.UpdateTask(bg, task); updErr != nil {
		log.Error("Failed to update task error", zap.Error(updErr))
	}

	if task.CanRetry() {
		return err
	}

	message := msgFailed
	if errors.Is(err, pipeline.ErrNoSpeech) {
		message = msgNoSpeech
	}
	if sendErr := p.messenger.Reply(bg, task.ChatID, task.TelegramMessageID, message); sendErr != nil {
		log.Error("Failed to notify user", zap.Error(sendErr))
	}
	return resilience.Permanent(err)
}
