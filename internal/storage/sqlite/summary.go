package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

func (s *DB) UpsertMonthlySummary(ctx context.Context, summary *models.MonthlySummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monthly_summaries (period, year, month, summary, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(period) DO UPDATE SET
			summary = excluded.summary,
			generated_at = excluded.generated_at`,
		summary.PeriodKey(), summary.Year, int(summary.Month), string(body),
		formatTime(summary.GeneratedAt))
	return wrapErr("upsert monthly summary", err)
}

func (s *DB) GetMonthlySummary(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error) {
	period := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM monthly_summaries WHERE period = ?`, period).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get monthly summary", err)
	}

	summary := &models.MonthlySummary{}
	if err := json.Unmarshal([]byte(body), summary); err != nil {
		return nil, fmt.Errorf("decoding monthly summary: %w", err)
	}
	return summary, nil
}
