package v1

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hrygo/feedlens/internal/logging"
	"github.com/hrygo/feedlens/server/service/feedback"
	"github.com/hrygo/feedlens/store"
)

// Feedback is the wire form of a stored feedback item.
type Feedback struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Sentiment *string        `json:"sentiment"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

type ListFeedbackResponse struct {
	Items    []*Feedback `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

type CreateFeedbackRequest struct {
	Text     *string        `json:"text" validate:"required"`
	Source   *string        `json:"source" validate:"required"`
	Metadata map[string]any `json:"metadata"`
}

type SummaryFilters struct {
	Search    string `json:"search"`
	Source    string `json:"source"`
	Sentiment string `json:"sentiment" validate:"omitempty,oneof=positive negative neutral"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	DateRange string `json:"date_range"`
}

func (f *SummaryFilters) isEmpty() bool {
	return f == nil || *f == SummaryFilters{}
}

type SummarizeRequest struct {
	FeedbackIDs []int64         `json:"feedback_ids" validate:"omitempty,dive,gte=1"`
	Filters     *SummaryFilters `json:"filters"`
}

type SummarizeResponse struct {
	Summary            string           `json:"summary"`
	SummaryHTML        string           `json:"summary_html"`
	FeedbackCount      int              `json:"feedback_count"`
	SentimentBreakdown map[string]int64 `json:"sentiment_breakdown"`
}

// FeedbackService adapts the feedback orchestrator to status-coded results.
type FeedbackService struct {
	Service         *feedback.Service
	MarkdownService *MarkdownService
}

func (s *FeedbackService) ListFeedback(ctx context.Context, req *feedback.ListRequest) (*ListFeedbackResponse, error) {
	result, err := s.Service.ListFeedback(ctx, req)
	if err != nil {
		return nil, toStatusError(err)
	}
	items := make([]*Feedback, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, convertFeedbackFromStore(item))
	}
	return &ListFeedbackResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}, nil
}

func (s *FeedbackService) GetFeedback(ctx context.Context, id int64) (*Feedback, error) {
	fb, err := s.Service.GetFeedback(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return convertFeedbackFromStore(fb), nil
}

func (s *FeedbackService) CreateFeedback(ctx context.Context, req *CreateFeedbackRequest) (*Feedback, error) {
	if req.Text == nil || req.Source == nil {
		return nil, status.Errorf(codes.InvalidArgument, "text and source are required")
	}
	fb, err := s.Service.CreateFeedback(ctx, &feedback.CreateRequest{
		Text:     *req.Text,
		Source:   *req.Source,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return convertFeedbackFromStore(fb), nil
}

func (s *FeedbackService) ReanalyzeFeedback(ctx context.Context, id int64) (*Feedback, error) {
	fb, err := s.Service.ReanalyzeFeedback(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return convertFeedbackFromStore(fb), nil
}

func (s *FeedbackService) GetStats(ctx context.Context) (*store.FeedbackStats, error) {
	stats, err := s.Service.GetStats(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return stats, nil
}

func (s *FeedbackService) Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResponse, error) {
	in := &feedback.SummarizeRequest{FeedbackIDs: req.FeedbackIDs}
	// An empty filters object selects the most recent feedback.
	if !req.Filters.isEmpty() {
		in.Filters = &feedback.SummaryFilters{
			Search:    req.Filters.Search,
			Source:    req.Filters.Source,
			Sentiment: req.Filters.Sentiment,
			StartDate: req.Filters.StartDate,
			EndDate:   req.Filters.EndDate,
			DateRange: req.Filters.DateRange,
		}
	}

	result, err := s.Service.Summarize(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	response := &SummarizeResponse{
		Summary:            result.Summary,
		FeedbackCount:      result.FeedbackCount,
		SentimentBreakdown: result.SentimentBreakdown,
	}
	if s.MarkdownService != nil {
		html, err := s.MarkdownService.RenderHTML(result.Summary)
		if err != nil {
			logging.FromContext(ctx).Warn("failed to render summary markdown", "error", err)
		} else {
			response.SummaryHTML = html
		}
	}
	return response, nil
}

func convertFeedbackFromStore(f *store.Feedback) *Feedback {
	fb := &Feedback{
		ID:        f.ID,
		Text:      f.Text,
		Source:    f.Source,
		CreatedAt: time.Unix(f.CreatedTs, 0).UTC(),
		Metadata:  f.Metadata,
	}
	if f.Sentiment != "" {
		sentiment := string(f.Sentiment)
		fb.Sentiment = &sentiment
	}
	return fb
}

// toStatusError maps orchestrator error kinds to gRPC codes.
func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, feedback.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, feedback.Message(err))
	case errors.Is(err, feedback.ErrNotFound):
		return status.Error(codes.NotFound, feedback.Message(err))
	case errors.Is(err, feedback.ErrAIServiceUnavailable):
		return status.Error(codes.Unavailable, feedback.Message(err))
	case errors.Is(err, feedback.ErrPersistence):
		return status.Error(codes.Internal, feedback.Message(err))
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
