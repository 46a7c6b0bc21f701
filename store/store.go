package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/feedlens/internal/profile"
)

// RecentWindow is the look-back used for the recent feedback count.
const RecentWindow = 7 * 24 * time.Hour

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateFeedback(ctx context.Context, create *Feedback) (*Feedback, error) {
	return s.driver.CreateFeedback(ctx, create)
}

func (s *Store) ListFeedbacks(ctx context.Context, find *FindFeedback) ([]*Feedback, error) {
	if find.IDList != nil && len(find.IDList) == 0 {
		return []*Feedback{}, nil
	}
	return s.driver.ListFeedbacks(ctx, find)
}

// GetFeedback returns nil without error when no row has the id.
func (s *Store) GetFeedback(ctx context.Context, id int64) (*Feedback, error) {
	limit := 1
	list, err := s.driver.ListFeedbacks(ctx, &FindFeedback{ID: &id, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateFeedback(ctx context.Context, update *UpdateFeedback) (*Feedback, error) {
	return s.driver.UpdateFeedback(ctx, update)
}

// QueryFeedbacks returns one page of matching feedback together with the total
// number of matches ignoring pagination.
func (s *Store) QueryFeedbacks(ctx context.Context, find *FindFeedback) ([]*Feedback, int64, error) {
	if find.IDList != nil && len(find.IDList) == 0 {
		return []*Feedback{}, 0, nil
	}

	countFind := *find
	countFind.Limit, countFind.Offset = nil, nil

	var (
		list  []*Feedback
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.driver.ListFeedbacks(gctx, find)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.driver.CountFeedbacks(gctx, &countFind)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []*Feedback{}
	}
	return list, total, nil
}

// GetFeedbackStats aggregates counts over all stored feedback.
// Items without a sentiment are reported under SentimentUnknown.
// Every figure is derived from one breakdown query so they agree with each other.
func (s *Store) GetFeedbackStats(ctx context.Context, now time.Time) (*FeedbackStats, error) {
	since := now.Add(-RecentWindow).Unix()
	buckets, err := s.driver.CountFeedbacksBreakdown(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count feedback")
	}

	stats := &FeedbackStats{
		SentimentCounts: map[string]int64{},
		SourceCounts:    map[string]int64{},
	}
	for _, bucket := range buckets {
		sentiment := bucket.Sentiment.String()
		if sentiment == "" {
			sentiment = SentimentUnknown
		}
		stats.TotalFeedback += bucket.Count
		stats.RecentCount += bucket.RecentCount
		stats.SentimentCounts[sentiment] += bucket.Count
		stats.SourceCounts[bucket.Source] += bucket.Count
	}
	return stats, nil
}
