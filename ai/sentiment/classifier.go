// Package sentiment labels feedback text as positive, negative or neutral.
package sentiment

import (
	"context"

	"github.com/hrygo/feedlens/store"
)

// Classifier assigns a sentiment label to feedback text.
// Classify never fails: when the model is unusable it falls back to keyword matching.
type Classifier interface {
	Classify(ctx context.Context, text string) store.Sentiment
}

// Method names reported to the metrics recorder.
const (
	MethodLLM      = "llm"
	MethodFallback = "fallback"
	MethodSkipped  = "skipped"
)

// Recorder receives one observation per classification.
type Recorder interface {
	RecordClassification(method string)
}

// MaxSnippetRunes bounds the text sent to the model.
const MaxSnippetRunes = 1000
