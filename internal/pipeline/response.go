package pipeline

import "voxeval/internal/report"

// Response is the public shape of a finished evaluation.
type Response struct {
	EvaluationID  string         `json:"evaluation_id"`
	Scores        ResponseScores `json:"scores"`
	Levels        ResponseLevels `json:"levels"`
	Feedback      Feedback       `json:"feedback"`
	Filler        FillerSummary  `json:"filler"`
	Charts        Charts         `json:"charts"`
	Transcription string         `json:"transcription"`
	PDFFilename   string         `json:"pdf_filename,omitempty"`
	Warnings      []string       `json:"warnings"`
}

type ResponseScores struct {
	Overall       float64 `json:"overall"`
	Grammar       float64 `json:"grammar"`
	Vocabulary    float64 `json:"vocabulary"`
	Fluency       float64 `json:"fluency"`
	Pronunciation float64 `json:"pronunciation"`
	FillerWords   float64 `json:"filler_words"`
}

type ResponseLevels struct {
	Overall       string `json:"overall"`
	Grammar       string `json:"grammar"`
	Vocabulary    string `json:"vocabulary"`
	Fluency       string `json:"fluency"`
	Pronunciation string `json:"pronunciation"`
	FillerWords   string `json:"filler_words"`
}

type MispronouncedWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type Feedback struct {
	ImprovedLines      []report.Line       `json:"improved_lines"`
	MispronouncedWords []MispronouncedWord `json:"mispronounced_words"`
	SummaryPoints      []string            `json:"summary_points"`
}

type FillerSummary struct {
	Percent   float64        `json:"percent"`
	Breakdown map[string]int `json:"breakdown"`
}

// Response converts the result into its public shape. Scratch file paths
// are never exposed.
func (r *Result) Response() Response {
	s := r.Scores

	mis := make([]MispronouncedWord, 0, len(r.Mispronounced))
	for _, c := range r.Mispronounced {
		mis = append(mis, MispronouncedWord{Word: c.Word, Start: c.Start, End: c.End, Confidence: c.Confidence})
	}

	lines := r.ImprovedLines
	if lines == nil {
		lines = []report.Line{}
	}

	resp := Response{
		EvaluationID: r.EvaluationID,
		Scores: ResponseScores{
			Overall:       s.Overall.Score,
			Grammar:       s.Grammar.Score,
			Vocabulary:    s.Vocabulary.Score,
			Fluency:       s.Fluency.Score,
			Pronunciation: s.Pronunciation.Score,
			FillerWords:   s.Filler.Score,
		},
		Levels: ResponseLevels{
			Overall:       string(s.Overall.Level),
			Grammar:       string(s.Grammar.Level),
			Vocabulary:    string(s.Vocabulary.Level),
			Fluency:       string(s.Fluency.Level),
			Pronunciation: string(s.Pronunciation.Level),
			FillerWords:   string(s.Filler.Level),
		},
		Feedback: Feedback{
			ImprovedLines:      lines,
			MispronouncedWords: mis,
			SummaryPoints:      r.SummaryPoints,
		},
		Filler:        FillerSummary{Percent: r.FillerPercent, Breakdown: r.FillerBreakdown},
		Charts:        r.Charts,
		Transcription: r.Transcription,
		Warnings:      r.Warnings,
	}
	if r.Report != nil {
		resp.PDFFilename = r.Report.Filename
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return resp
}
