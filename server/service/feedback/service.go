// Package feedback orchestrates the feedback lifecycle: create with
// classification, filtered listing, statistics, re-classification and summaries.
package feedback

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/hrygo/feedlens/ai/metrics"
	"github.com/hrygo/feedlens/ai/sentiment"
	"github.com/hrygo/feedlens/ai/summary"
	"github.com/hrygo/feedlens/internal/logging"
	"github.com/hrygo/feedlens/plugin/filter"
	"github.com/hrygo/feedlens/store"
)

// Config holds the limits the service enforces.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxSummaryItems int
	ValidSources    []string
}

// Service implements the feedback operations on top of the store and AI components.
type Service struct {
	store      *store.Store
	classifier sentiment.Classifier
	summarizer summary.Summarizer
	config     Config
	metrics    *metrics.PrometheusExporter

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewService creates a feedback service. exporter may be nil.
func NewService(st *store.Store, classifier sentiment.Classifier, summarizer summary.Summarizer, cfg Config, exporter *metrics.PrometheusExporter) *Service {
	return &Service{
		store:      st,
		classifier: classifier,
		summarizer: summarizer,
		config:     cfg,
		metrics:    exporter,
		now:        time.Now,
	}
}

// ListRequest selects a page of feedback. Empty strings mean "not supplied".
type ListRequest struct {
	Page     int
	PageSize int

	Search    string
	Source    string
	Sentiment string
	StartDate string
	EndDate   string

	// Filter is an optional CEL expression; explicit fields above override it.
	Filter string
}

// ListResult is one page of feedback and the total number of matches.
type ListResult struct {
	Items    []*store.Feedback
	Total    int64
	Page     int
	PageSize int
}

// ListFeedback returns a page of feedback matching every supplied predicate, newest first.
func (s *Service) ListFeedback(ctx context.Context, req *ListRequest) (*ListResult, error) {
	if req.Page < 1 {
		return nil, invalidArgumentf("page must be greater than or equal to 1")
	}
	pageSize := req.PageSize
	switch {
	case pageSize < 0:
		return nil, invalidArgumentf("page_size must be greater than or equal to 1")
	case pageSize == 0:
		pageSize = s.config.DefaultPageSize
	case pageSize > s.config.MaxPageSize:
		pageSize = s.config.MaxPageSize
	}
	if req.Page-1 > math.MaxInt32/pageSize {
		return nil, invalidArgumentf("page %d is out of range", req.Page)
	}

	find, err := buildFind(req)
	if err != nil {
		return nil, err
	}
	offset := (req.Page - 1) * pageSize
	find.Limit, find.Offset = &pageSize, &offset

	items, total, err := s.store.QueryFeedbacks(ctx, find)
	if err != nil {
		logging.FromContext(ctx).Error("failed to query feedback", "error", err)
		return nil, persistenceError(err, "Failed to fetch feedback")
	}
	return &ListResult{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: pageSize,
	}, nil
}

// buildFind merges the CEL filter with the explicit fields.
func buildFind(req *ListRequest) (*store.FindFeedback, error) {
	parsed, err := filter.ParseFeedbackFilter(req.Filter)
	if err != nil {
		return nil, invalidArgumentf("invalid filter: %v", err)
	}

	find := &store.FindFeedback{
		Search:          parsed.Search,
		Source:          parsed.Source,
		CreatedTsAfter:  parsed.CreatedTsAfter,
		CreatedTsBefore: parsed.CreatedTsBefore,
	}
	if parsed.Sentiment != nil {
		v := store.Sentiment(*parsed.Sentiment)
		find.Sentiment = &v
	}

	if req.Search != "" {
		find.Search = &req.Search
	}
	if req.Source != "" {
		find.Source = &req.Source
	}
	if req.Sentiment != "" {
		v := store.Sentiment(req.Sentiment)
		find.Sentiment = &v
	}

	after, before, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if after != nil {
		find.CreatedTsAfter = after
	}
	if before != nil {
		find.CreatedTsBefore = before
	}
	return find, nil
}

// GetFeedback returns one item or ErrNotFound.
func (s *Service) GetFeedback(ctx context.Context, id int64) (*store.Feedback, error) {
	fb, err := s.store.GetFeedback(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("failed to get feedback", "id", id, "error", err)
		return nil, persistenceError(err, "Failed to fetch feedback")
	}
	if fb == nil {
		return nil, notFoundf("Feedback with ID %d not found", id)
	}
	return fb, nil
}

// CreateRequest carries a new feedback item.
type CreateRequest struct {
	Text     string
	Source   string
	Metadata map[string]any
}

// CreateFeedback validates, classifies and stores a feedback item.
// Validation happens before any model call or write.
func (s *Service) CreateFeedback(ctx context.Context, req *CreateRequest) (*store.Feedback, error) {
	logger := logging.FromContext(ctx)

	if !slices.Contains(s.config.ValidSources, req.Source) {
		return nil, invalidArgumentf("Invalid source: %s. Must be one of %v", req.Source, s.config.ValidSources)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidArgumentf("Feedback text cannot be empty")
	}

	label := s.classifier.Classify(ctx, text)
	if !label.IsValid() {
		logger.Warn("classifier returned an invalid label, using neutral", "label", string(label))
		label = store.SentimentNeutral
	}

	created, err := s.store.CreateFeedback(ctx, &store.Feedback{
		Text:      text,
		Source:    req.Source,
		Sentiment: label,
		CreatedTs: s.now().Unix(),
		Metadata:  req.Metadata,
	})
	if err != nil {
		logger.Error("failed to create feedback", "error", err)
		return nil, persistenceError(err, "Failed to create feedback")
	}

	s.metrics.RecordFeedbackCreated(created.Source, string(created.Sentiment))
	logger.Info("created feedback", "id", created.ID, "sentiment", string(created.Sentiment))
	return created, nil
}

// GetStats returns aggregate counts over all feedback.
func (s *Service) GetStats(ctx context.Context) (*store.FeedbackStats, error) {
	stats, err := s.store.GetFeedbackStats(ctx, s.now())
	if err != nil {
		logging.FromContext(ctx).Error("failed to get feedback stats", "error", err)
		return nil, persistenceError(err, "Failed to fetch statistics")
	}
	return stats, nil
}

// ReanalyzeFeedback re-classifies a stored item and persists the new label.
// A missing id is reported as ErrNotFound, same as GetFeedback.
func (s *Service) ReanalyzeFeedback(ctx context.Context, id int64) (*store.Feedback, error) {
	fb, err := s.GetFeedback(ctx, id)
	if err != nil {
		return nil, err
	}

	label := s.classifier.Classify(ctx, fb.Text)
	if !label.IsValid() {
		label = store.SentimentNeutral
	}

	updated, err := s.store.UpdateFeedback(ctx, &store.UpdateFeedback{ID: id, Sentiment: &label})
	if err != nil {
		logging.FromContext(ctx).Error("failed to update feedback sentiment", "id", id, "error", err)
		return nil, persistenceError(err, "Failed to update feedback")
	}
	logging.FromContext(ctx).Info("re-analyzed feedback", "id", id, "sentiment", string(label))
	return updated, nil
}

// SummaryFilters select the feedback to summarize.
type SummaryFilters struct {
	Search    string
	Source    string
	Sentiment string
	StartDate string
	EndDate   string
	// DateRange is a free-form hint passed to the model; derived from the dates when empty.
	DateRange string
}

// SummarizeRequest picks a resolution mode: IDs, filters, or the most recent items.
type SummarizeRequest struct {
	FeedbackIDs []int64
	Filters     *SummaryFilters
}

// SummarizeResult is the generated summary and a breakdown of the summarized set.
type SummarizeResult struct {
	Summary            string
	FeedbackCount      int
	SentimentBreakdown map[string]int64
}

// Summarize resolves feedback, asks the model for a summary and reports the sentiment mix.
func (s *Service) Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResult, error) {
	logger := logging.FromContext(ctx)

	items, err := s.resolveSummaryItems(ctx, req)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(items))
	breakdown := make(map[string]int64)
	for i, item := range items {
		texts[i] = item.Text
		key := string(item.Sentiment)
		if key == "" {
			key = store.SentimentUnknown
		}
		breakdown[key]++
	}

	text, err := s.summarizer.Summarize(ctx, texts, summaryHints(req.Filters))
	if err != nil {
		logger.Error("failed to generate summary", "error", err)
		return nil, aiUnavailableError(err)
	}

	logger.Info("generated summary", "items", len(items))
	return &SummarizeResult{
		Summary:            text,
		FeedbackCount:      len(items),
		SentimentBreakdown: breakdown,
	}, nil
}

func (s *Service) resolveSummaryItems(ctx context.Context, req *SummarizeRequest) ([]*store.Feedback, error) {
	if len(req.FeedbackIDs) > 0 {
		items, err := s.store.ListFeedbacks(ctx, &store.FindFeedback{IDList: req.FeedbackIDs})
		if err != nil {
			return nil, persistenceError(err, "Failed to fetch feedback by IDs")
		}
		if len(items) == 0 {
			return nil, notFoundf("No feedback found with the provided IDs")
		}
		return items, nil
	}

	limit, offset := s.config.MaxSummaryItems, 0
	find := &store.FindFeedback{Limit: &limit, Offset: &offset}
	if f := req.Filters; f != nil {
		after, before, err := parseDateRange(f.StartDate, f.EndDate)
		if err != nil {
			return nil, err
		}
		find.CreatedTsAfter, find.CreatedTsBefore = after, before
		if f.Search != "" {
			find.Search = &f.Search
		}
		if f.Source != "" {
			find.Source = &f.Source
		}
		if f.Sentiment != "" {
			v := store.Sentiment(f.Sentiment)
			find.Sentiment = &v
		}
	}

	items, err := s.store.ListFeedbacks(ctx, find)
	if err != nil {
		return nil, persistenceError(err, "Failed to fetch feedback")
	}
	if len(items) == 0 {
		return nil, invalidArgumentf("No feedback found to summarize")
	}
	return items, nil
}

func summaryHints(f *SummaryFilters) *summary.Hints {
	if f == nil {
		return nil
	}
	hints := &summary.Hints{
		DateRange: f.DateRange,
		Source:    f.Source,
	}
	if hints.DateRange == "" && (f.StartDate != "" || f.EndDate != "") {
		start, end := f.StartDate, f.EndDate
		if start == "" {
			start = "beginning"
		}
		if end == "" {
			end = "now"
		}
		hints.DateRange = start + " to " + end
	}
	return hints
}
