package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hrygo/feedlens/store"
)

const feedbackColumns = "id, text, source, sentiment, created_ts, metadata"

// CreateFeedback inserts a feedback row and assigns its id.
func (d *DB) CreateFeedback(ctx context.Context, create *store.Feedback) (*store.Feedback, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	// metadata is JSONB - NULL when absent
	var metadata []byte
	if create.Metadata != nil {
		var err error
		metadata, err = json.Marshal(create.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	stmt := `INSERT INTO feedback (text, source, sentiment, created_ts, metadata)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Text,
		create.Source,
		nullSentiment(create.Sentiment),
		create.CreatedTs,
		metadata,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return create, nil
}

// ListFeedbacks returns matching feedback, newest first.
func (d *DB) ListFeedbacks(ctx context.Context, find *store.FindFeedback) ([]*store.Feedback, error) {
	where, args := buildFeedbackWhere(find)

	query := "SELECT " + feedbackColumns + " FROM feedback WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_ts DESC, id DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}
	if find.Offset != nil {
		query += fmt.Sprintf(" OFFSET %d", *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	list := []*store.Feedback{}
	for rows.Next() {
		var feedback store.Feedback
		var sentiment sql.NullString
		var metadata []byte
		if err := rows.Scan(
			&feedback.ID,
			&feedback.Text,
			&feedback.Source,
			&sentiment,
			&feedback.CreatedTs,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if sentiment.Valid {
			feedback.Sentiment = store.Sentiment(sentiment.String)
		}
		if len(metadata) > 0 {
			if feedback.Metadata, err = store.UnmarshalMetadata(metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata of feedback %d: %w", feedback.ID, err)
			}
		}
		list = append(list, &feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback rows: %w", err)
	}
	return list, nil
}

func (d *DB) CountFeedbacks(ctx context.Context, find *store.FindFeedback) (int64, error) {
	where, args := buildFeedbackWhere(find)

	var count int64
	query := "SELECT COUNT(*) FROM feedback WHERE " + strings.Join(where, " AND ")
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

func (d *DB) CountFeedbacksBreakdown(ctx context.Context, since int64) ([]*store.FeedbackBreakdown, error) {
	query := `SELECT sentiment, source, COUNT(*), COUNT(*) FILTER (WHERE created_ts >= $1)
		FROM feedback
		GROUP BY sentiment, source`
	rows, err := d.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback breakdown: %w", err)
	}
	defer rows.Close()

	list := []*store.FeedbackBreakdown{}
	for rows.Next() {
		var bucket store.FeedbackBreakdown
		var sentiment sql.NullString
		if err := rows.Scan(&sentiment, &bucket.Source, &bucket.Count, &bucket.RecentCount); err != nil {
			return nil, fmt.Errorf("failed to scan feedback breakdown: %w", err)
		}
		bucket.Sentiment = store.Sentiment(sentiment.String)
		list = append(list, &bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breakdown rows: %w", err)
	}
	return list, nil
}

// UpdateFeedback changes the mutable fields and returns the stored row.
func (d *DB) UpdateFeedback(ctx context.Context, update *store.UpdateFeedback) (*store.Feedback, error) {
	set, args := []string{}, []any{}
	if update.Sentiment != nil {
		set, args = append(set, "sentiment = "+placeholder(len(args)+1)), append(args, nullSentiment(*update.Sentiment))
	}
	if len(set) > 0 {
		stmt := "UPDATE feedback SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args)+1)
		args = append(args, update.ID)
		if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
			return nil, fmt.Errorf("failed to update feedback: %w", err)
		}
	}

	limit := 1
	list, err := d.ListFeedbacks(ctx, &store.FindFeedback{ID: &update.ID, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("feedback %d not found", update.ID)
	}
	return list[0], nil
}

func buildFeedbackWhere(find *store.FindFeedback) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.IDList != nil {
		where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.IDList))
	}
	if v := find.Search; v != nil && *v != "" {
		where, args = append(where, "text ILIKE '%' || "+placeholder(len(args)+1)+" || '%'"), append(args, *v)
	}
	if v := find.Source; v != nil {
		where, args = append(where, "source = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Sentiment; v != nil {
		where, args = append(where, "sentiment = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsBefore; v != nil {
		where, args = append(where, "created_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}
	return where, args
}

func nullSentiment(s store.Sentiment) sql.NullString {
	return sql.NullString{String: string(s), Valid: s != ""}
}
