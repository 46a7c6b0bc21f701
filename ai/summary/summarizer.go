// Package summary turns a batch of feedback texts into a themed summary.
package summary

import (
	"context"
	"errors"
)

// EmptySummary is returned for an empty batch without contacting the model.
const EmptySummary = "No feedback available to summarize."

// DefaultMaxItems caps how many texts are sent in one request.
const DefaultMaxItems = 50

// ErrUnavailable marks every failure to obtain a summary from the model.
var ErrUnavailable = errors.New("summary service unavailable")

// Summarizer produces a summary of feedback texts.
type Summarizer interface {
	// Summarize keeps the first MaxItems texts in input order.
	// Failures wrap ErrUnavailable; there is no fallback summary.
	Summarize(ctx context.Context, texts []string, hints *Hints) (string, error)
}

// Hints describe the selection that produced the texts.
type Hints struct {
	DateRange string
	Source    string
}

// Recorder receives one observation per summary request.
type Recorder interface {
	RecordSummary(status string)
}
