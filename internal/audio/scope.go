package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"voxeval/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope is a private scratch directory owned by exactly one evaluation.
// Close removes it and everything inside; calling Close again is a no-op.
type Scope struct {
	id  string
	dir string

	once     sync.Once
	closeErr error
}

// NewScope creates a uniquely named directory under base. An empty base
// uses the system temp directory.
func NewScope(base string) (*Scope, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create scratch base: %w", err)
		}
	}

	id := uuid.New().String()
	dir, err := os.MkdirTemp(base, "eval-"+id+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	logger.Debug("Scratch scope created", zap.String("scope_id", id), zap.String("dir", dir))
	return &Scope{id: id, dir: dir}, nil
}

func (s *Scope) ID() string {
	return s.id
}

func (s *Scope) Dir() string {
	return s.dir
}

// Path joins name onto the scope directory. Only the base name of name is
// used so callers cannot escape the scope.
func (s *Scope) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *Scope) Close() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil {
			s.closeErr = fmt.Errorf("failed to remove scratch dir: %w", err)
			logger.Warn("Failed to release scratch scope", zap.String("scope_id", s.id), zap.Error(err))
			return
		}
		logger.Debug("Scratch scope released", zap.String("scope_id", s.id))
	})
	return s.closeErr
}
