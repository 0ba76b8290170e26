package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"voxeval/internal/chart"
	"voxeval/internal/scoring"

	"github.com/go-pdf/fpdf"
)

const title = "Communication Report"

// Line is one transcript line with its suggested rewrite.
type Line struct {
	Original string  `json:"original"`
	Improved string  `json:"improved"`
	Boost    float64 `json:"boost"`
}

// Document is everything a report shows.
type Document struct {
	Name          string
	Date          time.Time
	Scores        scoring.Scores
	ProfileChart  string
	FluencyChart  string
	SummaryPoints []string
	ImprovedLines []Line
	Mispronounced []scoring.WordClip
}

// Report is a rendered document.
type Report struct {
	Filename string
	Data     []byte
}

// Renderer produces a report file from a Document.
type Renderer interface {
	Render(doc Document) (*Report, error)
}

// Noop renders nothing and reports no error.
type Noop struct{}

func (Noop) Render(Document) (*Report, error) { return nil, nil }

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Filename is report_<name>_<yyyymmddhhmmss>.pdf with whitespace in name
// replaced by underscores.
func Filename(name string, at time.Time) string {
	safe := strings.Join(strings.Fields(name), "_")
	safe = unsafeName.ReplaceAllString(safe, "")
	if safe == "" {
		safe = "speaker"
	}
	return fmt.Sprintf("report_%s_%s.pdf", safe, at.Format("20060102150405"))
}

type rgb struct{ r, g, b int }

var classColors = map[string]rgb{
	"emerald": {16, 185, 129},
	"green":   {34, 197, 94},
	"blue":    {59, 130, 246},
	"purple":  {168, 85, 247},
	"orange":  {249, 115, 22},
	"red":     {239, 68, 68},
}

// ColorClass buckets the integer part of a score.
func ColorClass(score float64) string {
	switch s := int(score); {
	case s >= 90:
		return "emerald"
	case s >= 80:
		return "green"
	case s >= 70:
		return "blue"
	case s >= 60:
		return "purple"
	case s >= 50:
		return "orange"
	default:
		return "red"
	}
}

// PDF renders reports with fpdf using the core Helvetica font.
type PDF struct {
	Now func() time.Time
}

func NewPDF() *PDF {
	return &PDF{Now: time.Now}
}

func (p *PDF) Render(doc Document) (*Report, error) {
	if doc.Date.IsZero() {
		doc.Date = p.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(6)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr("Report for: "+doc.Name), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, "Date: "+doc.Date.Format("2006-01-02"), "", 1, "", false, 0, "")
	pdf.Ln(6)

	sectionTitle(pdf, "Overall Performance")
	scoreRow(pdf, "Overall Score", doc.Scores.Overall)
	pdf.Ln(4)

	sectionTitle(pdf, "Skill-wise Breakdown")
	scoreRow(pdf, "Grammar", doc.Scores.Grammar)
	scoreRow(pdf, "Vocabulary", doc.Scores.Vocabulary)
	scoreRow(pdf, "Fluency", doc.Scores.Fluency)
	scoreRow(pdf, "Pronunciation", doc.Scores.Pronunciation)
	scoreRow(pdf, "Filler Words", doc.Scores.Filler)
	pdf.Ln(6)

	for i, uri := range []string{doc.ProfileChart, doc.FluencyChart} {
		if err := embedChart(pdf, fmt.Sprintf("chart-%d", i), uri); err != nil {
			return nil, err
		}
	}

	sectionTitle(pdf, "Summary & Recommendations")
	pdf.SetFont("Helvetica", "", 10)
	for _, point := range doc.SummaryPoints {
		pdf.MultiCell(0, 6, tr("- "+point), "", "L", false)
	}
	pdf.Ln(4)

	if len(doc.ImprovedLines) > 0 {
		sectionTitle(pdf, "Suggested Rewrites")
		for _, l := range doc.ImprovedLines {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 6, tr("Said: "+l.Original), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("Better: %s (+%.2f)", l.Improved, l.Boost)), "", "L", false)
			pdf.Ln(2)
		}
		pdf.Ln(2)
	}

	if len(doc.Mispronounced) > 0 {
		sectionTitle(pdf, "Words to Practise")
		pdf.SetFont("Helvetica", "", 10)
		for _, w := range doc.Mispronounced {
			pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  at %.2fs  (confidence %.0f%%)", w.Word, w.Start, w.Confidence*100)), "", 1, "", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	return &Report{Filename: Filename(doc.Name, doc.Date), Data: buf.Bytes()}, nil
}

func sectionTitle(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 230, 250)
	pdf.CellFormat(0, 10, text, "", 1, "", true, 0, "")
	pdf.Ln(3)
}

func scoreRow(pdf *fpdf.Fpdf, label string, s scoring.SubScore) {
	c := classColors[ColorClass(s.Score)]

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 8, label+":", "", 0, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(c.r, c.g, c.b)
	pdf.CellFormat(40, 8, fmt.Sprintf("%.2f", s.Score), "", 0, "", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(40, 8, fmt.Sprintf("(%s)", s.Level), "", 1, "", false, 0, "")
}

// embedChart places a PNG data URI at the current position. Empty URIs are
// skipped.
func embedChart(pdf *fpdf.Fpdf, name, uri string) error {
	if uri == "" {
		return nil
	}

	data, err := chart.Decode(uri)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		return fmt.Errorf("failed to embed %s: %w", name, pdf.Error())
	}

	pdf.ImageOptions(name, 30, pdf.GetY(), 150, 0, true, opts, 0, "")
	pdf.Ln(6)
	return nil
}
