package database

import (
	"condense/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("summary not found")

const summaryColumns = "id, source, origin, title, input_chars, chunk_count, reduce_rounds, " +
	"summary, duration_ms, created_at"

func (d *Database) InsertSummary(ctx context.Context, s domain.Summary) error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("summary ID is empty")
	}

	query := "insert into summaries (" + summaryColumns + ") values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	_, err := d.db.ExecContext(ctx, query,
		s.ID,
		string(s.Source),
		s.Origin,
		s.Title,
		s.InputChars,
		s.ChunkCount,
		s.ReduceRounds,
		s.Text,
		s.Duration.Milliseconds(),
		s.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	return nil
}

func (d *Database) GetSummary(ctx context.Context, id string) (domain.Summary, error) {
	query := "select " + summaryColumns + " from summaries where id = ?"

	s, err := scanSummary(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, ErrNotFound
	}
	if err != nil {
		return domain.Summary{}, fmt.Errorf("failed to scan row: %w", err)
	}

	return s, nil
}

// ListSummaries returns up to limit summaries, newest first.
func (d *Database) ListSummaries(ctx context.Context, limit int) ([]domain.Summary, error) {
	if limit <= 0 {
		return []domain.Summary{}, nil
	}

	query := "select " + summaryColumns + " from summaries order by created_at desc, id limit ?"

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "ListSummaries")
		}
	}()

	summaries := make([]domain.Summary, 0, limit)
	for rows.Next() {
		s, scanErr := scanSummary(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan row: %w", scanErr)
		}
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return summaries, nil
}

// DeleteSummariesBefore removes summaries created before cutoff and returns
// how many were removed.
func (d *Database) DeleteSummariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := "delete from summaries where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (domain.Summary, error) {
	var (
		s          domain.Summary
		source     string
		durationMs int64
		createdAt  int64
	)

	err := row.Scan(
		&s.ID,
		&source,
		&s.Origin,
		&s.Title,
		&s.InputChars,
		&s.ChunkCount,
		&s.ReduceRounds,
		&s.Text,
		&durationMs,
		&createdAt,
	)
	if err != nil {
		return domain.Summary{}, err
	}

	s.Source = domain.Source(source)
	s.Duration = time.Duration(durationMs) * time.Millisecond
	s.CreatedAt = time.UnixMilli(createdAt).UTC()

	return s, nil
}
