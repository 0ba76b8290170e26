package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"voxeval/pkg/logger"
	"voxeval/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a task or transcript does not exist.
var ErrNotFound = errors.New("not found")

const DefaultMigrationsDir = "migrations"

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to PostgreSQL and applies pending migrations
// from migrationsDir.
func NewPostgresStorage(ctx context.Context, databaseURL, migrationsDir string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := withMigrator(databaseURL, migrationsDir, func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations to apply")
			return nil
		}
		return err
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")

	return &PostgresStorage{pool: pool}, nil
}

// ResetMigrations drops all tables and re-runs migrations (for development).
func ResetMigrations(databaseURL, migrationsDir string) error {
	logger.Warn("Resetting database - this will drop all data!")

	return withMigrator(databaseURL, migrationsDir, func(m *migrate.Migrate) error {
		if err := m.Drop(); err != nil {
			return fmt.Errorf("failed to drop database: %w", err)
		}
		logger.Info("Database dropped successfully")

		if err := m.Up(); err != nil {
			return fmt.Errorf("failed to run migrations after reset: %w", err)
		}
		logger.Info("Database reset and migrations applied successfully")
		return nil
	})
}

func withMigrator(databaseURL, migrationsDir string, fn func(*migrate.Migrate) error) error {
	sourceURL, err := migrationsSourceURL(migrationsDir)
	if err != nil {
		return err
	}

	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	logger.Info("Running migrations", zap.String("path", sourceURL))

	db := stdlib.OpenDB(*connConfig)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}

// migrationsSourceURL turns a directory into a file:// source URL on both
// Windows and Unix.
func migrationsSourceURL(dir string) (string, error) {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get migrations path: %w", err)
	}

	slashed := filepath.ToSlash(abs)
	if filepath.VolumeName(abs) != "" {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String(), nil
}

// Close closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

const taskColumns = `id, telegram_message_id, chat_id, file_id, speaker_name, status,
	operation_id, evaluation_id, attempts, error_text, meta, created_at, updated_at`

// CreateTask inserts a new task into the database
func (s *PostgresStorage) CreateTask(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		task.ID,
		task.TelegramMessageID,
		task.ChatID,
		task.FileID,
		task.SpeakerName,
		task.Status,
		task.OperationID,
		task.EvaluationID,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTaskByID retrieves a task by its ID
func (s *PostgresStorage) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var task model.Task
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.TelegramMessageID,
		&task.ChatID,
		&task.FileID,
		&task.SpeakerName,
		&task.Status,
		&task.OperationID,
		&task.EvaluationID,
		&task.Attempts,
		&task.ErrorText,
		&task.Meta,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// UpdateTask updates a full task
func (s *PostgresStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET status = $2, operation_id = $3, evaluation_id = $4, attempts = $5,
		    error_text = $6, meta = $7, updated_at = $8
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		task.ID,
		task.Status,
		task.OperationID,
		task.EvaluationID,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}

	return nil
}

// CreateTranscript inserts a transcript. A retried task replaces the
// transcript of its earlier attempt.
func (s *PostgresStorage) CreateTranscript(ctx context.Context, transcript *model.Transcript) error {
	query := `
		INSERT INTO transcripts (id, task_id, language, text, segments, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (task_id) DO UPDATE
		SET language = EXCLUDED.language, text = EXCLUDED.text, segments = EXCLUDED.segments,
		    raw_response = EXCLUDED.raw_response, created_at = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		transcript.ID,
		transcript.TaskID,
		transcript.Language,
		transcript.Text,
		transcript.Segments,
		transcript.RawResponse,
		transcript.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

// GetTranscriptByTaskID retrieves a transcript by task ID
func (s *PostgresStorage) GetTranscriptByTaskID(ctx context.Context, taskID string) (*model.Transcript, error) {
	query := `
		SELECT id, task_id, language, text, segments, raw_response, created_at
		FROM transcripts
		WHERE task_id = $1`

	var transcript model.Transcript
	err := s.pool.QueryRow(ctx, query, taskID).Scan(
		&transcript.ID,
		&transcript.TaskID,
		&transcript.Language,
		&transcript.Text,
		&transcript.Segments,
		&transcript.RawResponse,
		&transcript.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transcript for task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &transcript, nil
}
