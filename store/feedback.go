package store

import (
	"bytes"
	"encoding/json"
)

// Sentiment is the classification label attached to a feedback item.
// The empty value is persisted as NULL and means "not yet classified".
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"

	// SentimentUnknown is the histogram key for items without a label.
	SentimentUnknown = "unknown"
)

func (s Sentiment) String() string {
	return string(s)
}

// IsValid reports whether s is one of the three classification labels.
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

// Feedback is a single customer feedback entry.
type Feedback struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Sentiment Sentiment      `json:"sentiment"`
	CreatedTs int64          `json:"created_ts"`
	Metadata  map[string]any `json:"metadata"`
}

// FindFeedback specifies conditions for finding feedback.
// All set predicates are combined with AND.
type FindFeedback struct {
	ID *int64
	// IDList restricts to the given ids. A non-nil empty list matches nothing.
	IDList []int64

	// Search is a case-insensitive substring match on text.
	Search    *string
	Source    *string
	Sentiment *Sentiment

	// Inclusive unix-second bounds on created_ts.
	CreatedTsAfter  *int64
	CreatedTsBefore *int64

	Limit  *int
	Offset *int
}

// UpdateFeedback specifies the mutable fields of a feedback item.
type UpdateFeedback struct {
	ID        int64
	Sentiment *Sentiment
}

// FeedbackBreakdown is one (sentiment, source) bucket of the feedback table.
// An unclassified bucket has an empty Sentiment.
type FeedbackBreakdown struct {
	Sentiment Sentiment
	Source    string
	Count     int64
	// RecentCount counts the bucket's rows created at or after the cutoff.
	RecentCount int64
}

// FeedbackStats holds aggregate counts over the whole feedback table.
type FeedbackStats struct {
	TotalFeedback   int64            `json:"total_feedback"`
	SentimentCounts map[string]int64 `json:"sentiment_counts"`
	SourceCounts    map[string]int64 `json:"source_counts"`
	RecentCount     int64            `json:"recent_count"`
}

// UnmarshalMetadata decodes a stored metadata document. Numbers are kept as
// json.Number so integers above 2^53 survive a round trip.
func UnmarshalMetadata(data []byte) (map[string]any, error) {
	var metadata map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}
