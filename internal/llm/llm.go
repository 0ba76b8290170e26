package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"voxeval/pkg/logger"
	"voxeval/pkg/resilience"

	"go.uber.org/zap"
)

// ErrUnavailable is returned by generators that are not configured or have
// been switched off. Callers fall back to identity results.
var ErrUnavailable = errors.New("text generation unavailable")

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Unavailable is the generator used when no backend is configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Generate(context.Context, string) (string, error) {
	if u.Reason == "" {
		return "", resilience.Permanent(ErrUnavailable)
	}
	return "", resilience.Permanent(fmt.Errorf("%w: %s", ErrUnavailable, u.Reason))
}

// Options selects and tunes a backend.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration

	RateLimit       int
	RateInterval    time.Duration
	MaxRetries      int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// New builds the generator described by opts, wrapped in rate limiting,
// a circuit breaker and retries. A missing provider or key yields
// Unavailable rather than an error so the service can run without one.
func New(ctx context.Context, opts Options) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" || provider == ProviderNone {
		logger.Warn("Text generation disabled, feedback will use fallbacks")
		return Unavailable{Reason: "no provider configured"}, nil
	}
	if opts.APIKey == "" {
		logger.Warn("Text generation API key missing, feedback will use fallbacks", zap.String("provider", provider))
		return Unavailable{Reason: provider + " API key is not set"}, nil
	}

	var (
		gen TextGenerator
		err error
	)
	switch provider {
	case ProviderGemini:
		gen, err = NewGemini(ctx, opts.APIKey, opts.Model)
	case ProviderOpenAI:
		gen = NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Text generation enabled", zap.String("provider", provider), zap.String("model", opts.Model))
	return NewGuarded(gen, opts), nil
}

// Guarded applies a resilience.Guard and a per-call timeout to another
// generator.
type Guarded struct {
	next    TextGenerator
	guard   *resilience.Guard
	timeout time.Duration
}

func NewGuarded(next TextGenerator, opts Options) *Guarded {
	g := &resilience.Guard{}
	if opts.RateLimit > 0 {
		interval := opts.RateInterval
		if interval <= 0 {
			interval = time.Minute / time.Duration(opts.RateLimit)
		}
		g.Limiter = resilience.NewRateLimiter(opts.RateLimit, interval)
	}
	if opts.BreakerFailures > 0 {
		timeout := opts.BreakerTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		g.Breaker = resilience.NewCircuitBreaker(opts.BreakerFailures, timeout)
	}
	if opts.MaxRetries > 0 {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = opts.MaxRetries
		g.Retry = retry
	}

	return &Guarded{next: next, guard: g, timeout: opts.Timeout}
}

func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		text, err := g.next.Generate(callCtx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
