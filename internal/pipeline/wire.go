package pipeline

import (
	"context"
	"fmt"
	"voxeval/internal/audio"
	"voxeval/internal/chart"
	"voxeval/internal/config"
	"voxeval/internal/llm"
	"voxeval/internal/report"
	"voxeval/internal/scoring"
)

// NewFromConfig builds a pipeline with the production collaborators: the
// configured text generator, PNG charts, PDF reports and scratch scopes
// under the worker temp dir. The returned Feedback also serves hints.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Pipeline, *llm.Feedback, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	gen, err := llm.New(ctx, cfg.LLMOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create text generator: %w", err)
	}
	feedback := llm.NewFeedback(gen)

	var classifier scoring.FillerClassifier = scoring.NeverFiller{}
	if cfg.LLM.ContextualFillers {
		classifier = feedback
	}

	tempDir := cfg.Worker.TempDir
	p, err := New(Deps{
		Config:     cfg.ScoringConfig(),
		Rules:      rules,
		Advisor:    feedback,
		Classifier: classifier,
		Charts:     chart.NewPNG(),
		Reports:    report.NewPDF(),
		NewScratch: func() (ScratchDir, error) {
			scope, err := audio.NewScope(tempDir)
			if err != nil {
				return nil, err
			}
			return scope, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return p, feedback, nil
}
