// Package history records favourites changes in the favourite_events table.
package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/storage"
)

// Service provides history management functionality.
type Service struct {
	db       *sql.DB
	settings storage.Blob
	logger   zerolog.Logger
}

// NewService creates a new history service. settings holds the retention
// configuration.
func NewService(db *sql.DB, settings storage.Blob, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		settings: settings,
		logger:   logger.With().Str("component", "history").Logger(),
	}
}

// Create records one event.
func (s *Service) Create(ctx context.Context, action Action, imdbID, title string) (*Entry, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO favourite_events (imdb_id, action, title) VALUES (?, ?, ?)`,
		imdbID, string(action), title)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s event: %w", action, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// LogAdded records that a title was added to favourites.
func (s *Service) LogAdded(ctx context.Context, imdbID, title string) error {
	_, err := s.Create(ctx, ActionAdded, imdbID, title)
	return err
}

// LogRemoved records that a title was removed from favourites.
func (s *Service) LogRemoved(ctx context.Context, imdbID, title string) error {
	_, err := s.Create(ctx, ActionRemoved, imdbID, title)
	return err
}

func (s *Service) get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, imdb_id, action, title, created_at FROM favourite_events WHERE id = ?`, id)
	return scanEntry(row)
}

// List lists history entries newest first, with pagination and filtering.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}

	const filter = `WHERE (? = '' OR action = ?) AND (? = '' OR imdb_id = ?)`
	args := []any{opts.Action, opts.Action, opts.ImdbID, opts.ImdbID}

	var totalCount int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favourite_events `+filter, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	offset := (opts.Page - 1) * opts.PageSize
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, imdb_id, action, title, created_at FROM favourite_events `+filter+
			` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, opts.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, opts.PageSize)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int(totalCount) / opts.PageSize
	if int(totalCount)%opts.PageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Items:      entries,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// DeleteAll deletes all history entries.
func (s *Service) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favourite_events`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var action string
	if err := row.Scan(&e.ID, &e.ImdbID, &action, &e.Title, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Action = Action(action)
	return &e, nil
}
