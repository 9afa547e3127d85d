package db

import (
	"context"
	"encoding/json"
	"fmt"

	"haca/internal/models"

	"github.com/jackc/pgx/v5"
)

// Append records a scan summary and trims rows beyond the limit
func (d *DB) Append(ctx context.Context, s models.ScanSummary) error {
	counts, err := json.Marshal(s.Counts)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"INSERT INTO scan_history (scanned_at, score, total_issues, counts, duration_ms) VALUES ($1, $2, $3, $4, $5)",
			s.Timestamp, s.Score, s.TotalCount, counts, s.DurationMS); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if d.limit <= 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			"DELETE FROM scan_history WHERE id NOT IN (SELECT id FROM scan_history ORDER BY scanned_at DESC, id DESC LIMIT $1)",
			d.limit)
		return err
	})
}

// Recent fetches the newest summaries first
func (d *DB) Recent(ctx context.Context, limit int) ([]models.ScanSummary, error) {
	if limit <= 0 {
		limit = d.limit
	}
	rows, err := d.pool.Query(ctx,
		"SELECT scanned_at, score, total_issues, counts, duration_ms FROM scan_history ORDER BY scanned_at DESC, id DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.ScanSummary{}
	for rows.Next() {
		var s models.ScanSummary
		var counts []byte
		if err := rows.Scan(&s.Timestamp, &s.Score, &s.TotalCount, &counts, &s.DurationMS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(counts, &s.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
