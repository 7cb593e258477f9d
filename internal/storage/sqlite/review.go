package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

const reviewColumns = `id, line_id, account_id, reason, suggestions, status,
	resolved_by, created_at, resolved_at`

func (s *DB) CreateReviewItem(ctx context.Context, item *models.ReviewItem) error {
	suggestions, err := json.Marshal(item.Suggestions)
	if err != nil {
		return fmt.Errorf("create review item: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_items (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.LineID, item.AccountID, item.Reason, string(suggestions),
		string(item.Status), item.ResolvedBy, formatTime(item.CreatedAt),
		formatTimePtr(item.ResolvedAt))
	return wrapErr("create review item", err)
}

func (s *DB) GetReviewItem(ctx context.Context, id string) (*models.ReviewItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM review_items WHERE id = ?`, id)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get review item", err)
	}
	return item, nil
}

func (s *DB) UpdateReviewItem(ctx context.Context, item *models.ReviewItem) error {
	suggestions, err := json.Marshal(item.Suggestions)
	if err != nil {
		return fmt.Errorf("update review item: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_items
		SET reason = ?, suggestions = ?, status = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ?`,
		item.Reason, string(suggestions), string(item.Status), item.ResolvedBy,
		formatTimePtr(item.ResolvedAt), item.ID)
	if err != nil {
		return wrapErr("update review item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update review item", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *DB) ListReviewItems(ctx context.Context, filter storage.ReviewFilter) ([]*models.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_items WHERE 1 = 1`
	args := []interface{}{}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, formatTime(filter.To))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list review items", err)
	}
	defer rows.Close()

	var items []*models.ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, wrapErr("list review items", err)
		}
		// Confidence is a property of the suggestions, not a column, so the
		// threshold filter applies after the scan.
		if filter.MinConfidence > 0 {
			top, ok := item.TopSuggestion()
			if !ok || top.Confidence < filter.MinConfidence {
				continue
			}
		}
		items = append(items, item)
	}
	return items, wrapErr("list review items", rows.Err())
}

func (s *DB) PendingReviewItemForLine(ctx context.Context, lineID string) (*models.ReviewItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+` FROM review_items
		WHERE line_id = ? AND status = 'pending'
		ORDER BY created_at DESC LIMIT 1`, lineID)
	item, err := scanReviewItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("pending review item", err)
	}
	return item, nil
}

func scanReviewItem(row scanner) (*models.ReviewItem, error) {
	item := &models.ReviewItem{}
	var suggestions, status, createdAt string
	var resolvedAt sql.NullString

	err := row.Scan(&item.ID, &item.LineID, &item.AccountID, &item.Reason,
		&suggestions, &status, &item.ResolvedBy, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(suggestions), &item.Suggestions); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}
	item.Status = models.ReviewStatus(status)
	item.CreatedAt = parseTime(createdAt)
	item.ResolvedAt = parseTimePtr(resolvedAt)
	return item, nil
}
