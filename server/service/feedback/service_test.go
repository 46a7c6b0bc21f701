package feedback

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/feedlens/ai/metrics"
	"github.com/hrygo/feedlens/ai/summary"
	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/store"
	"github.com/hrygo/feedlens/store/db/sqlite"
)

type stubClassifier struct {
	mu    sync.Mutex
	label store.Sentiment
	texts []string
}

func (c *stubClassifier) Classify(_ context.Context, text string) store.Sentiment {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.label
}

// labelByText classifies by exact text, defaulting to neutral.
type labelByText map[string]store.Sentiment

func (m labelByText) Classify(_ context.Context, text string) store.Sentiment {
	if label, ok := m[text]; ok {
		return label
	}
	return store.SentimentNeutral
}

type stubSummarizer struct {
	mu    sync.Mutex
	reply string
	err   error
	texts []string
	hints *summary.Hints
}

func (s *stubSummarizer) Summarize(_ context.Context, texts []string, hints *summary.Hints) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts, s.hints = texts, hints
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "feedlens_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testConfig() Config {
	return Config{
		DefaultPageSize: profile.DefaultPageSize,
		MaxPageSize:     profile.MaxPageSize,
		MaxSummaryItems: profile.MaxSummaryItems,
		ValidSources:    profile.DefaultValidSources,
	}
}

func newTestService(t *testing.T, classifier *stubClassifier, summarizer *stubSummarizer) (*Service, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	if classifier == nil {
		classifier = &stubClassifier{label: store.SentimentNeutral}
	}
	if summarizer == nil {
		summarizer = &stubSummarizer{reply: "summary"}
	}
	svc := NewService(st, classifier, summarizer, testConfig(), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, st
}

func seed(t *testing.T, st *store.Store, items ...*store.Feedback) []*store.Feedback {
	t.Helper()
	created := make([]*store.Feedback, 0, len(items))
	for _, item := range items {
		f, err := st.CreateFeedback(context.Background(), item)
		require.NoError(t, err)
		created = append(created, f)
	}
	return created
}

func TestCreateFeedback(t *testing.T) {
	ctx := context.Background()
	classifier := &stubClassifier{label: store.SentimentPositive}
	svc, _ := newTestService(t, classifier, nil)

	fb, err := svc.CreateFeedback(ctx, &CreateRequest{
		Text:     "  Love the new dashboard  ",
		Source:   "survey",
		Metadata: map[string]any{"user": "u1"},
	})
	require.NoError(t, err)
	assert.NotZero(t, fb.ID)
	assert.Equal(t, "Love the new dashboard", fb.Text)
	assert.Equal(t, store.SentimentPositive, fb.Sentiment)
	assert.Equal(t, fixedNow.Unix(), fb.CreatedTs)
	assert.Equal(t, []string{"Love the new dashboard"}, classifier.texts)

	got, err := svc.GetFeedback(ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, fb.Text, got.Text)
	assert.Equal(t, "u1", got.Metadata["user"])
}

func TestCreateFeedback_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     *CreateRequest
		message string
	}{
		{
			name:    "unknown source",
			req:     &CreateRequest{Text: "hello", Source: "twitter"},
			message: "Invalid source: twitter. Must be one of [support_ticket survey app_store]",
		},
		{
			name:    "blank text",
			req:     &CreateRequest{Text: " \n\t ", Source: "survey"},
			message: "Feedback text cannot be empty",
		},
		{
			name:    "source checked first",
			req:     &CreateRequest{Text: "", Source: ""},
			message: "Invalid source: . Must be one of [support_ticket survey app_store]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &stubClassifier{label: store.SentimentPositive}
			svc, st := newTestService(t, classifier, nil)

			_, err := svc.CreateFeedback(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, tt.message, Message(err))
			assert.Empty(t, classifier.texts)

			_, total, err := st.QueryFeedbacks(context.Background(), &store.FindFeedback{})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestCreateFeedback_InvalidLabelBecomesNeutral(t *testing.T) {
	svc, _ := newTestService(t, &stubClassifier{label: "ecstatic"}, nil)

	fb, err := svc.CreateFeedback(context.Background(), &CreateRequest{Text: "wow", Source: "survey"})
	require.NoError(t, err)
	assert.Equal(t, store.SentimentNeutral, fb.Sentiment)
}

func TestCreateFeedback_RecordsMetrics(t *testing.T) {
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	st := newTestStore(t)
	svc := NewService(st, &stubClassifier{label: store.SentimentNegative}, &stubSummarizer{}, testConfig(), exporter)

	_, err := svc.CreateFeedback(context.Background(), &CreateRequest{Text: "broken", Source: "app_store"})
	require.NoError(t, err)

	families, err := exporter.GetRegistry().Gather()
	require.NoError(t, err)
	var found bool
	for _, family := range families {
		if family.GetName() == "feedlens_feedback_created_total" {
			found = true
			require.Len(t, family.GetMetric(), 1)
			assert.Equal(t, float64(1), family.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestGetFeedback_NotFound(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.GetFeedback(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Feedback with ID 999 not found", Message(err))
}

func TestListFeedback_Pagination(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil, nil)
	for i := range 45 {
		seed(t, st, &store.Feedback{
			Text:      fmt.Sprintf("item %d", i),
			Source:    "survey",
			Sentiment: store.SentimentNeutral,
			CreatedTs: fixedNow.Unix() - int64(45-i),
		})
	}

	tests := []struct {
		name     string
		req      *ListRequest
		items    int
		pageSize int
		first    string
	}{
		{name: "default page size", req: &ListRequest{Page: 1}, items: 20, pageSize: 20, first: "item 44"},
		{name: "last partial page", req: &ListRequest{Page: 3, PageSize: 20}, items: 5, pageSize: 20, first: "item 4"},
		{name: "beyond last page", req: &ListRequest{Page: 10, PageSize: 20}, items: 0, pageSize: 20},
		{name: "clamped page size", req: &ListRequest{Page: 1, PageSize: 500}, items: 45, pageSize: 100, first: "item 44"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ListFeedback(ctx, tt.req)
			require.NoError(t, err)
			assert.EqualValues(t, 45, result.Total)
			assert.Equal(t, tt.pageSize, result.PageSize)
			assert.Equal(t, tt.req.Page, result.Page)
			require.Len(t, result.Items, tt.items)
			if tt.items > 0 {
				assert.Equal(t, tt.first, result.Items[0].Text)
			}
		})
	}
}

func TestListFeedback_InvalidPaging(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	for _, req := range []*ListRequest{
		{Page: 0},
		{Page: -1},
		{Page: 1, PageSize: -5},
		{Page: 1 << 40, PageSize: 100},
	} {
		_, err := svc.ListFeedback(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%+v", req)
	}
}

func TestListFeedback_Filters(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil, nil)
	day := func(d int) int64 { return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC).Unix() }
	seed(t, st,
		&store.Feedback{Text: "App crashes on login", Source: "app_store", Sentiment: store.SentimentNegative, CreatedTs: day(1)},
		&store.Feedback{Text: "Great support team", Source: "support_ticket", Sentiment: store.SentimentPositive, CreatedTs: day(5)},
		&store.Feedback{Text: "Login is slow", Source: "survey", Sentiment: store.SentimentNegative, CreatedTs: day(10)},
		&store.Feedback{Text: "It is fine", Source: "survey", Sentiment: store.SentimentNeutral, CreatedTs: day(20)},
	)

	tests := []struct {
		name  string
		req   *ListRequest
		texts []string
	}{
		{
			name:  "search is case insensitive",
			req:   &ListRequest{Page: 1, Search: "LOGIN"},
			texts: []string{"Login is slow", "App crashes on login"},
		},
		{
			name:  "source and sentiment",
			req:   &ListRequest{Page: 1, Source: "survey", Sentiment: "negative"},
			texts: []string{"Login is slow"},
		},
		{
			name:  "date range",
			req:   &ListRequest{Page: 1, StartDate: "2024-01-05", EndDate: "2024-01-10T10:00:00Z"},
			texts: []string{"Login is slow", "Great support team"},
		},
		{
			name:  "filter expression",
			req:   &ListRequest{Page: 1, Filter: `sentiment == 'negative' && text.contains('crash')`},
			texts: []string{"App crashes on login"},
		},
		{
			name:  "explicit field overrides filter",
			req:   &ListRequest{Page: 1, Filter: `source == 'app_store'`, Source: "survey"},
			texts: []string{"It is fine", "Login is slow"},
		},
		{
			name:  "no matches",
			req:   &ListRequest{Page: 1, Search: "refund"},
			texts: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ListFeedback(ctx, tt.req)
			require.NoError(t, err)
			texts := make([]string, 0, len(result.Items))
			for _, item := range result.Items {
				texts = append(texts, item.Text)
			}
			assert.Equal(t, tt.texts, texts)
			assert.EqualValues(t, len(tt.texts), result.Total)
		})
	}
}

func TestListFeedback_BadInput(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.ListFeedback(context.Background(), &ListRequest{Page: 1, StartDate: "yesterday"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, Message(err), "Invalid start_date format")

	_, err = svc.ListFeedback(context.Background(), &ListRequest{Page: 1, Filter: `source == 'a' || source == 'b'`})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubClassifier{}, nil)
	svc.classifier = labelByText{
		"Crashes constantly":  store.SentimentNegative,
		"Very happy with it":  store.SentimentPositive,
		"Refund took forever": store.SentimentNegative,
	}

	for _, req := range []*CreateRequest{
		{Text: "Crashes constantly", Source: "app_store"},
		{Text: "Very happy with it", Source: "survey"},
		{Text: "Refund took forever", Source: "app_store"},
	} {
		_, err := svc.CreateFeedback(ctx, req)
		require.NoError(t, err)
	}

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalFeedback)
	assert.EqualValues(t, 3, stats.RecentCount)
	assert.Equal(t, map[string]int64{"negative": 2, "positive": 1}, stats.SentimentCounts)
	assert.Equal(t, map[string]int64{"app_store": 2, "survey": 1}, stats.SourceCounts)
}

func TestReanalyzeFeedback(t *testing.T) {
	ctx := context.Background()
	classifier := &stubClassifier{label: store.SentimentNeutral}
	svc, _ := newTestService(t, classifier, nil)

	fb, err := svc.CreateFeedback(ctx, &CreateRequest{Text: "Checkout fails", Source: "support_ticket"})
	require.NoError(t, err)
	require.Equal(t, store.SentimentNeutral, fb.Sentiment)

	classifier.label = store.SentimentNegative
	updated, err := svc.ReanalyzeFeedback(ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SentimentNegative, updated.Sentiment)
	assert.Equal(t, fb.CreatedTs, updated.CreatedTs)

	got, err := svc.GetFeedback(ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SentimentNegative, got.Sentiment)

	_, err = svc.ReanalyzeFeedback(ctx, fb.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummarize_ByIDs(t *testing.T) {
	ctx := context.Background()
	summarizer := &stubSummarizer{reply: "Users report crashes."}
	svc, st := newTestService(t, nil, summarizer)
	items := seed(t, st,
		&store.Feedback{Text: "a", Source: "survey", Sentiment: store.SentimentNegative, CreatedTs: 1},
		&store.Feedback{Text: "b", Source: "survey", Sentiment: store.SentimentPositive, CreatedTs: 2},
		&store.Feedback{Text: "c", Source: "survey", CreatedTs: 3},
	)

	result, err := svc.Summarize(ctx, &SummarizeRequest{FeedbackIDs: []int64{items[0].ID, items[2].ID, 9999}})
	require.NoError(t, err)
	assert.Equal(t, "Users report crashes.", result.Summary)
	assert.Equal(t, 2, result.FeedbackCount)
	assert.Equal(t, map[string]int64{"negative": 1, "unknown": 1}, result.SentimentBreakdown)
	assert.ElementsMatch(t, []string{"a", "c"}, summarizer.texts)
	assert.Nil(t, summarizer.hints)

	_, err = svc.Summarize(ctx, &SummarizeRequest{FeedbackIDs: []int64{9999}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "No feedback found with the provided IDs", Message(err))
}

func TestSummarize_ByFilters(t *testing.T) {
	ctx := context.Background()
	summarizer := &stubSummarizer{reply: "ok"}
	svc, st := newTestService(t, nil, summarizer)
	seed(t, st,
		&store.Feedback{Text: "store one", Source: "app_store", Sentiment: store.SentimentNegative, CreatedTs: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix()},
		&store.Feedback{Text: "survey one", Source: "survey", Sentiment: store.SentimentPositive, CreatedTs: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC).Unix()},
	)

	result, err := svc.Summarize(ctx, &SummarizeRequest{Filters: &SummaryFilters{
		Source:    "app_store",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FeedbackCount)
	assert.Equal(t, []string{"store one"}, summarizer.texts)
	require.NotNil(t, summarizer.hints)
	assert.Equal(t, "app_store", summarizer.hints.Source)
	assert.Equal(t, "2024-01-01 to 2024-01-31", summarizer.hints.DateRange)

	_, err = svc.Summarize(ctx, &SummarizeRequest{Filters: &SummaryFilters{Source: "support_ticket"}})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "No feedback found to summarize", Message(err))

	_, err = svc.Summarize(ctx, &SummarizeRequest{Filters: &SummaryFilters{StartDate: "not a date"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSummarize_RecentCapped(t *testing.T) {
	ctx := context.Background()
	summarizer := &stubSummarizer{reply: "ok"}
	svc, st := newTestService(t, nil, summarizer)
	svc.config.MaxSummaryItems = 3
	for i := range 5 {
		seed(t, st, &store.Feedback{Text: fmt.Sprintf("n%d", i), Source: "survey", Sentiment: store.SentimentNeutral, CreatedTs: int64(i + 1)})
	}

	result, err := svc.Summarize(ctx, &SummarizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.FeedbackCount)
	assert.Equal(t, []string{"n4", "n3", "n2"}, summarizer.texts)
	assert.Equal(t, map[string]int64{"neutral": 3}, result.SentimentBreakdown)
}

func TestSummarize_EmptyStore(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Summarize(context.Background(), &SummarizeRequest{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "No feedback found to summarize", Message(err))
}

func TestSummarize_AIUnavailable(t *testing.T) {
	summarizer := &stubSummarizer{err: errors.New("upstream 500")}
	svc, st := newTestService(t, nil, summarizer)
	seed(t, st, &store.Feedback{Text: "x", Source: "survey", Sentiment: store.SentimentNeutral, CreatedTs: 1})

	_, err := svc.Summarize(context.Background(), &SummarizeRequest{})
	require.ErrorIs(t, err, ErrAIServiceUnavailable)
	assert.Equal(t, "AI service temporarily unavailable", Message(err))
}

func TestSummaryHints(t *testing.T) {
	assert.Nil(t, summaryHints(nil))
	assert.Equal(t, &summary.Hints{DateRange: "Q1"}, summaryHints(&SummaryFilters{DateRange: "Q1", StartDate: "2024-01-01"}))
	assert.Equal(t, &summary.Hints{DateRange: "2024-01-01 to now"}, summaryHints(&SummaryFilters{StartDate: "2024-01-01"}))
	assert.Equal(t, &summary.Hints{DateRange: "beginning to 2024-02-01", Source: "survey"}, summaryHints(&SummaryFilters{EndDate: "2024-02-01", Source: "survey"}))
}
