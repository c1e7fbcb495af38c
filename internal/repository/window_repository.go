package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WindowRepository struct {
	*base.Repository
}

func NewWindowRepository(pool *pgxpool.Pool) *WindowRepository {
	return &WindowRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новое окно
func (r *WindowRepository) Create(ctx context.Context, window *model.Window) error {
	query := `
		INSERT INTO windows (mentor_id, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, window.MentorID, window.StartTime, window.EndTime).
		Scan(&window.ID, &window.CreatedAt)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	return nil
}

// GetByID получает окно по ID
func (r *WindowRepository) GetByID(ctx context.Context, id int64) (*model.Window, error) {
	return r.get(ctx, `
		SELECT id, mentor_id, start_time, end_time, created_at
		FROM windows
		WHERE id = $1
	`, id)
}

// GetByIDForUpdate получает окно и блокирует строку до конца транзакции
func (r *WindowRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Window, error) {
	return r.get(ctx, `
		SELECT id, mentor_id, start_time, end_time, created_at
		FROM windows
		WHERE id = $1
		FOR UPDATE
	`, id)
}

func (r *WindowRepository) get(ctx context.Context, query string, id int64) (*model.Window, error) {
	var window model.Window
	err := r.QueryRow(ctx, query, id).Scan(
		&window.ID,
		&window.MentorID,
		&window.StartTime,
		&window.EndTime,
		&window.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get window by id: %w", err)
	}

	return &window, nil
}

// LockMentor сериализует публикацию окон одного ментора до конца транзакции
func (r *WindowRepository) LockMentor(ctx context.Context, mentorID int64) error {
	_, err := r.Conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, mentorID)
	if err != nil {
		return fmt.Errorf("lock mentor windows: %w", err)
	}
	return nil
}

// ListOverlapping получает окна ментора, пересекающиеся с [start, end)
func (r *WindowRepository) ListOverlapping(ctx context.Context, mentorID int64, start, end time.Time) ([]*model.Window, error) {
	query := `
		SELECT id, mentor_id, start_time, end_time, created_at
		FROM windows
		WHERE mentor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, mentorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list overlapping windows: %w", err)
	}
	defer rows.Close()

	var windows []*model.Window
	for rows.Next() {
		var window model.Window
		err := rows.Scan(
			&window.ID,
			&window.MentorID,
			&window.StartTime,
			&window.EndTime,
			&window.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, &window)
	}

	return windows, rows.Err()
}

// ListOpen получает свободные окна ментора, пересекающиеся с [from, to].
// Окно свободно, если на него нет бронирований в статусе, отличном от cancelled.
func (r *WindowRepository) ListOpen(ctx context.Context, mentorID int64, from, to time.Time) ([]model.OpenWindow, error) {
	query := `
		SELECT w.id, w.start_time, w.end_time
		FROM windows w
		WHERE w.mentor_id = $1
		  AND w.start_time <= $3
		  AND w.end_time >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.window_id = w.id AND b.status <> 'cancelled'
		  )
		ORDER BY w.start_time, w.id
	`

	rows, err := r.Query(ctx, query, mentorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list open windows: %w", err)
	}

	windows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OpenWindow, error) {
		var w model.OpenWindow
		err := row.Scan(&w.WindowID, &w.StartTime, &w.EndTime)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan open windows: %w", err)
	}

	return windows, nil
}
