package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"voxeval/internal/audio"
	"voxeval/internal/chart"
	"voxeval/internal/llm"
	"voxeval/internal/report"
	"voxeval/internal/scoring"
	"voxeval/internal/transcript"
	"voxeval/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audio is the decoded recording of one evaluation. *audio.Track
// implements it.
type Audio interface {
	scoring.EnergySource
	WriteClip(path string, start, end float64) error
}

// ScratchDir holds the ephemeral files of one evaluation. *audio.Scope
// implements it.
type ScratchDir interface {
	Path(name string) string
	Close() error
}

// Advisor produces the text-generation parts of the feedback.
// *llm.Feedback implements it.
type Advisor interface {
	ImproveLines(ctx context.Context, lines []string) ([]string, error)
	Summary(ctx context.Context, in llm.SummaryInput) ([]string, error)
}

// Deps are the collaborators of a Pipeline. Nil collaborators are replaced
// by their no-op or default implementations and a zero Config by
// scoring.DefaultConfig.
type Deps struct {
	Config     scoring.Config
	Rules      *scoring.Rules
	Tagger     scoring.Tagger
	Advisor    Advisor
	Classifier scoring.FillerClassifier
	Charts     chart.Renderer
	Reports    report.Renderer
	// NewScratch creates the scratch scope of one evaluation.
	NewScratch func() (ScratchDir, error)
}

// Pipeline evaluates one recording at a time per call. It holds no
// per-evaluation state, so concurrent Evaluate calls are independent.
type Pipeline struct {
	cfg        scoring.Config
	grammar    *scoring.GrammarScorer
	vocabulary *scoring.VocabularyScorer
	fillers    *scoring.FillerAnalyzer
	advisor    Advisor
	charts     chart.Renderer
	reports    report.Renderer
	newScratch func() (ScratchDir, error)
}

func New(deps Deps) (*Pipeline, error) {
	rules := deps.Rules
	if rules == nil {
		var err error
		if rules, err = scoring.DefaultRules(); err != nil {
			return nil, err
		}
	}

	tagger := deps.Tagger
	if tagger == nil {
		tagger = scoring.NewProseTagger()
	}

	grammar, err := scoring.NewGrammarScorer(rules, tagger)
	if err != nil {
		return nil, fmt.Errorf("failed to build grammar scorer: %w", err)
	}

	cfg := deps.Config
	if cfg == (scoring.Config{}) {
		cfg = scoring.DefaultConfig()
	}

	p := &Pipeline{
		cfg:        cfg,
		grammar:    grammar,
		vocabulary: scoring.NewVocabularyScorer(rules),
		fillers:    scoring.NewFillerAnalyzer(rules, tagger, deps.Classifier),
		advisor:    deps.Advisor,
		charts:     deps.Charts,
		reports:    deps.Reports,
		newScratch: deps.NewScratch,
	}
	if p.advisor == nil {
		p.advisor = llm.NewFeedback(nil)
	}
	if p.charts == nil {
		p.charts = chart.Noop{}
	}
	if p.reports == nil {
		p.reports = report.Noop{}
	}
	if p.newScratch == nil {
		p.newScratch = func() (ScratchDir, error) {
			scope, err := audio.NewScope("")
			if err != nil {
				return nil, err
			}
			return scope, nil
		}
	}
	return p, nil
}

// Input is one evaluation request.
type Input struct {
	Name       string
	Transcript *transcript.Transcript
	// Audio may be nil; gap energy then reads as silence and the
	// pronunciation score falls back to 0.
	Audio Audio
}

// Charts holds PNG data URIs.
type Charts struct {
	Profile string `json:"profile,omitempty"`
	Fluency string `json:"fluency,omitempty"`
}

// Result is everything one evaluation produced.
type Result struct {
	EvaluationID    string              `json:"evaluation_id"`
	Name            string              `json:"name"`
	Scores          scoring.Scores      `json:"scores"`
	WPM             float64             `json:"wpm"`
	Duration        float64             `json:"duration"`
	GrammarErrors   int                 `json:"grammar_errors"`
	FillerPercent   float64             `json:"filler_percent"`
	FillerBreakdown map[string]int      `json:"filler_breakdown"`
	Pauses          []scoring.Pause     `json:"pauses"`
	Mispronounced   []scoring.WordClip  `json:"mispronounced_words"`
	ImprovedLines   []report.Line       `json:"improved_lines"`
	SummaryPoints   []string            `json:"summary_points"`
	RateOverTime    []scoring.RatePoint `json:"rate_over_time"`
	Charts          Charts              `json:"charts"`
	Report          *report.Report      `json:"-"`
	Transcription   string              `json:"transcription"`
	Warnings        []string            `json:"warnings"`
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Evaluate scores one recording. Per-evaluation scratch files are released
// exactly once before Evaluate returns, on every path. Failures of optional
// stages are reported in Result.Warnings; only ErrNoSpeech and a cancelled
// context abort the evaluation.
func (p *Pipeline) Evaluate(ctx context.Context, in Input) (*Result, error) {
	if in.Transcript.IsEmpty() {
		return nil, ErrNoSpeech
	}

	res := &Result{
		EvaluationID: uuid.New().String(),
		Name:         in.Name,
		Warnings:     []string{},
	}
	log := logger.With(zap.String("evaluation_id", res.EvaluationID), zap.String("name", in.Name))
	started := time.Now()
	log.Info("Evaluation started")

	scratch, err := p.newScratch()
	if err != nil {
		scratch = nil
		log.Warn("Scratch scope unavailable", zap.Error(err))
	} else {
		defer func() {
			if err := scratch.Close(); err != nil {
				log.Warn("Failed to release scratch scope", zap.Error(err))
			}
		}()
	}

	tr := in.Transcript
	words := tr.Words()
	text := tr.FullText()
	total := tr.Duration()
	res.Duration = total
	res.Transcription = strings.Join(tr.Lines(), " ")

	_, vocalized, err := scoring.AnalyzeGaps(tr.Segments, in.Audio, p.cfg.FillerGapThreshold, p.cfg.EnergyThreshold)
	if err != nil {
		log.Warn("Gap energy analysis failed", zap.Error(err))
		res.warn(fmt.Sprintf("vocalized filler detection skipped: %v", err))
		vocalized = 0
	}
	res.Pauses = scoring.DetectPauses(tr.Segments, p.cfg.FluencyPauseThreshold)
	res.WPM = scoring.AverageRate(len(words), total)
	log.Debug("Timing analysed", zap.Float64("wpm", res.WPM), zap.Int("pauses", len(res.Pauses)), zap.Int("vocalized", vocalized))

	grammarErrors, grammarScore, err := p.grammar.Score(text)
	if err != nil {
		log.Warn("Grammar analysis incomplete", zap.Error(err))
		res.warn(err.Error())
	}
	res.GrammarErrors = grammarErrors
	vocabularyScore := p.vocabulary.Score(text)
	fluencyScore := p.cfg.Fluency.Score(res.WPM, res.Pauses, total)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clips, err := extractClips(ctx, scratch, in.Audio, words)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("Clip extraction failed, pronunciation degraded", zap.Error(err))
		res.warn(fmt.Sprintf("pronunciation scoring unavailable: %v", err))
		clips = nil
	}
	pronunciationScore := scoring.PronunciationScore(clips)
	res.Mispronounced = scoring.MispronouncedWords(clips, p.cfg.MispronunciationThreshold)

	fillers := p.fillers.Analyze(ctx, text, len(words), vocalized)
	res.FillerPercent = fillers.Percent
	res.FillerBreakdown = fillers.Breakdown
	for _, w := range fillers.Warnings {
		res.warn(w)
	}

	res.Scores = scoring.NewScores(p.cfg.Fusion, grammarScore, vocabularyScore, fluencyScore, pronunciationScore, fillers.Percent)
	log.Info("Scores computed",
		zap.Float64("overall", res.Scores.Overall.Score),
		zap.String("level", string(res.Scores.Overall.Level)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.ImprovedLines = p.improveLines(ctx, tr.Lines(), res, log)
	res.SummaryPoints = p.summarize(ctx, text, res, log)

	res.RateOverTime = scoring.RateOverTime(tr.Segments, total, p.cfg.RateWindow)
	p.renderCharts(res, log)

	if err := p.renderReport(res); err != nil {
		log.Warn("Report missing", zap.Error(err))
		res.warn(WarnReportMissing)
	}

	log.Info("Evaluation finished", zap.Duration("took", time.Since(started)), zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// improveLines pairs each line with its rewrite. Boost is the gain in the
// mean of grammar and vocabulary scores, never negative.
func (p *Pipeline) improveLines(ctx context.Context, lines []string, res *Result, log *zap.Logger) []report.Line {
	improved, err := p.advisor.ImproveLines(ctx, lines)
	if err != nil && !errors.Is(err, llm.ErrUnavailable) {
		log.Warn("Line improvement failed, keeping originals", zap.Error(err))
		res.warn("improved lines unavailable: text generation failed")
	}
	if len(improved) != len(lines) {
		improved = lines
	}

	out := make([]report.Line, 0, len(lines))
	for i, original := range lines {
		line := report.Line{Original: original, Improved: improved[i]}
		if line.Improved != line.Original {
			line.Boost = max(0, math.Round((p.lineQuality(line.Improved, log)-p.lineQuality(line.Original, log))*100)/100)
		}
		out = append(out, line)
	}
	return out
}

// lineQuality is best effort: when tagging fails the grammar part uses the
// pattern checks alone.
func (p *Pipeline) lineQuality(text string, log *zap.Logger) float64 {
	_, g, err := p.grammar.Score(text)
	if err != nil {
		log.Debug("Grammar analysis incomplete for line quality", zap.Error(err))
	}
	return (g + p.vocabulary.Score(text)) / 2
}

func (p *Pipeline) summarize(ctx context.Context, text string, res *Result, log *zap.Logger) []string {
	s := res.Scores
	points, err := p.advisor.Summary(ctx, llm.SummaryInput{
		Transcript:    text,
		Overall:       s.Overall.Score,
		Grammar:       s.Grammar.Score,
		Vocabulary:    s.Vocabulary.Score,
		Fluency:       s.Fluency.Score,
		Pronunciation: s.Pronunciation.Score,
		Filler:        s.Filler.Score,
	})
	if err != nil && !errors.Is(err, llm.ErrUnavailable) {
		log.Warn("Summary generation failed", zap.Error(err))
		res.warn("summary unavailable: text generation failed")
	}
	if len(points) == 0 {
		points = []string{llm.SummaryFailed}
	}
	return points
}

func (p *Pipeline) renderCharts(res *Result, log *zap.Logger) {
	s := res.Scores
	profile, err := p.charts.Profile([]chart.Bar{
		{Label: "Grammar", Value: s.Grammar.Score},
		{Label: "Vocabulary", Value: s.Vocabulary.Score},
		{Label: "Fluency", Value: s.Fluency.Score},
		{Label: "Pronunciation", Value: s.Pronunciation.Score},
		{Label: "Filler Words", Value: s.Filler.Score},
	})
	if err != nil {
		log.Warn("Profile chart failed", zap.Error(err))
		res.warn("score profile chart unavailable")
	}

	curve, err := p.charts.FluencyCurve(res.RateOverTime)
	if err != nil {
		log.Warn("Fluency chart failed", zap.Error(err))
		res.warn("fluency chart unavailable")
	}

	res.Charts = Charts{Profile: profile, Fluency: curve}
}

func (p *Pipeline) renderReport(res *Result) error {
	rep, err := p.reports.Render(report.Document{
		Name:          res.Name,
		Scores:        res.Scores,
		ProfileChart:  res.Charts.Profile,
		FluencyChart:  res.Charts.Fluency,
		SummaryPoints: res.SummaryPoints,
		ImprovedLines: res.ImprovedLines,
		Mispronounced: res.Mispronounced,
	})
	if err != nil {
		return &ReportError{Err: err}
	}
	if rep == nil {
		return fmt.Errorf("no report produced")
	}
	res.Report = rep
	return nil
}
