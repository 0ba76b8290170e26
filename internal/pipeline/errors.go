package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoSpeech means the transcript has no recognised words. It is an input
// problem and is not retried.
var ErrNoSpeech = errors.New("no speech detected in audio")

// ResourceError reports a failed audio or scratch-file operation. The
// affected sub-score falls back and the evaluation continues.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// ReportError reports a failed report render. Scores are still returned.
type ReportError struct {
	Err error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report generation: %v", e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

const WarnReportMissing = "PDF report generation failed, but scores are available."
