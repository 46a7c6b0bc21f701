package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Schema
	ApplySchema(ctx context.Context) error
	GetSchemaVersion(ctx context.Context) (string, error)
	UpsertSchemaVersion(ctx context.Context, version string) error

	// Feedback model related methods.
	CreateFeedback(ctx context.Context, create *Feedback) (*Feedback, error)
	ListFeedbacks(ctx context.Context, find *FindFeedback) ([]*Feedback, error)
	CountFeedbacks(ctx context.Context, find *FindFeedback) (int64, error)
	// CountFeedbacksBreakdown counts all feedback per (sentiment, source) in a single statement.
	CountFeedbacksBreakdown(ctx context.Context, since int64) ([]*FeedbackBreakdown, error)
	UpdateFeedback(ctx context.Context, update *UpdateFeedback) (*Feedback, error)
}
