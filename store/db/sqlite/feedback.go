package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/feedlens/store"
)

const feedbackColumns = "id, text, source, sentiment, created_ts, metadata"

func (d *DB) CreateFeedback(ctx context.Context, create *store.Feedback) (*store.Feedback, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	metadata, err := marshalMetadata(create.Metadata)
	if err != nil {
		return nil, err
	}

	stmt := `INSERT INTO feedback (text, source, sentiment, created_ts, metadata)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Text,
		create.Source,
		nullSentiment(create.Sentiment),
		create.CreatedTs,
		metadata,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create feedback")
	}
	return create, nil
}

func (d *DB) ListFeedbacks(ctx context.Context, find *store.FindFeedback) ([]*store.Feedback, error) {
	where, args := buildFeedbackWhere(find)

	query := "SELECT " + feedbackColumns + " FROM feedback WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_ts DESC, id DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
		if find.Offset != nil {
			query += fmt.Sprintf(" OFFSET %d", *find.Offset)
		}
	} else if find.Offset != nil {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list feedback")
	}
	defer rows.Close()

	list := []*store.Feedback{}
	for rows.Next() {
		var feedback store.Feedback
		var sentiment, metadata sql.NullString
		if err := rows.Scan(
			&feedback.ID,
			&feedback.Text,
			&feedback.Source,
			&sentiment,
			&feedback.CreatedTs,
			&metadata,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan feedback")
		}
		if sentiment.Valid {
			feedback.Sentiment = store.Sentiment(sentiment.String)
		}
		if metadata.Valid && metadata.String != "" {
			if feedback.Metadata, err = store.UnmarshalMetadata([]byte(metadata.String)); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal metadata of feedback %d", feedback.ID)
			}
		}
		list = append(list, &feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CountFeedbacks(ctx context.Context, find *store.FindFeedback) (int64, error) {
	where, args := buildFeedbackWhere(find)

	var count int64
	query := "SELECT COUNT(*) FROM feedback WHERE " + strings.Join(where, " AND ")
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count feedback")
	}
	return count, nil
}

func (d *DB) CountFeedbacksBreakdown(ctx context.Context, since int64) ([]*store.FeedbackBreakdown, error) {
	query := `SELECT sentiment, source, COUNT(*), SUM(CASE WHEN created_ts >= ? THEN 1 ELSE 0 END)
		FROM feedback
		GROUP BY sentiment, source`
	rows, err := d.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count feedback breakdown")
	}
	defer rows.Close()

	list := []*store.FeedbackBreakdown{}
	for rows.Next() {
		var bucket store.FeedbackBreakdown
		var sentiment sql.NullString
		if err := rows.Scan(&sentiment, &bucket.Source, &bucket.Count, &bucket.RecentCount); err != nil {
			return nil, errors.Wrap(err, "failed to scan feedback breakdown")
		}
		bucket.Sentiment = store.Sentiment(sentiment.String)
		list = append(list, &bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateFeedback(ctx context.Context, update *store.UpdateFeedback) (*store.Feedback, error) {
	set, args := []string{}, []any{}
	if update.Sentiment != nil {
		set, args = append(set, "sentiment = ?"), append(args, nullSentiment(*update.Sentiment))
	}
	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := "UPDATE feedback SET " + strings.Join(set, ", ") + " WHERE id = ?"
		if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
			return nil, errors.Wrap(err, "failed to update feedback")
		}
	}

	limit := 1
	list, err := d.ListFeedbacks(ctx, &store.FindFeedback{ID: &update.ID, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("feedback %d not found", update.ID)
	}
	return list[0], nil
}

func buildFeedbackWhere(find *store.FindFeedback) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if find.IDList != nil {
		if len(find.IDList) == 0 {
			where = append(where, "1 = 0")
		} else {
			holders := make([]string, 0, len(find.IDList))
			for _, id := range find.IDList {
				holders, args = append(holders, "?"), append(args, id)
			}
			where = append(where, fmt.Sprintf("id IN (%s)", strings.Join(holders, ", ")))
		}
	}
	if v := find.Search; v != nil && *v != "" {
		where, args = append(where, "instr(unicode_lower(text), unicode_lower(?)) > 0"), append(args, *v)
	}
	if v := find.Source; v != nil {
		where, args = append(where, "source = ?"), append(args, *v)
	}
	if v := find.Sentiment; v != nil {
		where, args = append(where, "sentiment = ?"), append(args, string(*v))
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= ?"), append(args, *v)
	}
	if v := find.CreatedTsBefore; v != nil {
		where, args = append(where, "created_ts <= ?"), append(args, *v)
	}
	return where, args
}

func nullSentiment(s store.Sentiment) sql.NullString {
	return sql.NullString{String: string(s), Valid: s != ""}
}

func marshalMetadata(metadata map[string]any) (sql.NullString, error) {
	if metadata == nil {
		return sql.NullString{}, nil
	}
	bytes, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "failed to marshal metadata")
	}
	return sql.NullString{String: string(bytes), Valid: true}, nil
}
