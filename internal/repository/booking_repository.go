package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

const bookingColumns = `b.id, b.learner_id, b.course_id, b.window_id, b.prior_window_id,
	b.session_type, b.status, b.notes, b.version, b.created_at, b.updated_at`

func scanBooking(row pgx.Row, booking *model.Booking, extra ...any) error {
	dest := []any{
		&booking.ID,
		&booking.LearnerID,
		&booking.CourseID,
		&booking.WindowID,
		&booking.PriorWindowID,
		&booking.SessionType,
		&booking.Status,
		&booking.Notes,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (learner_id, course_id, window_id, prior_window_id, session_type, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.LearnerID,
		booking.CourseID,
		booking.WindowID,
		booking.PriorWindowID,
		booking.SessionType,
		booking.Status,
		booking.Notes,
	).Scan(&booking.ID, &booking.Version, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, activeWindowIndex) {
			return ErrWindowTaken
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetContext получает бронирование вместе с текущим окном
func (r *BookingRepository) GetContext(ctx context.Context, id int64) (*model.BookingContext, error) {
	return r.getContext(ctx, id, "")
}

// GetContextForUpdate то же, что GetContext, но блокирует строку бронирования
func (r *BookingRepository) GetContextForUpdate(ctx context.Context, id int64) (*model.BookingContext, error) {
	return r.getContext(ctx, id, "FOR UPDATE OF b")
}

func (r *BookingRepository) getContext(ctx context.Context, id int64, lock string) (*model.BookingContext, error) {
	query := `
		SELECT ` + bookingColumns + `, w.mentor_id, w.start_time, w.end_time
		FROM bookings b
		JOIN windows w ON w.id = b.window_id
		WHERE b.id = $1
	` + lock

	var bc model.BookingContext
	err := scanBooking(r.QueryRow(ctx, query, id), &bc.Booking, &bc.MentorID, &bc.WindowStart, &bc.WindowEnd)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &bc, nil
}

// ActiveByWindow получает активное бронирование окна
func (r *BookingRepository) ActiveByWindow(ctx context.Context, windowID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.window_id = $1 AND b.status <> 'cancelled'
		LIMIT 1
	`

	var booking model.Booking
	err := scanBooking(r.QueryRow(ctx, query, windowID), &booking)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by window: %w", err)
	}

	return &booking, nil
}

// Update сохраняет изменения бронирования, если версия не изменилась с момента чтения
func (r *BookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET window_id = $1,
		    prior_window_id = $2,
		    status = $3,
		    notes = $4,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.WindowID,
		booking.PriorWindowID,
		booking.Status,
		booking.Notes,
		booking.ID,
		booking.Version,
	).Scan(&booking.Version, &booking.UpdatedAt)

	if err != nil {
		switch {
		case base.IsNotFound(err):
			return ErrStaleBooking
		case base.IsUniqueViolation(err, activeWindowIndex):
			return ErrWindowTaken
		}
		return fmt.Errorf("update booking: %w", err)
	}

	return nil
}

// List получает страницу бронирований по фильтру и общее количество
func (r *BookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]model.BookingView, int, error) {
	where, args := bookingFilterClause(filter)

	from := `
		FROM bookings b
		JOIN windows w ON w.id = b.window_id
		JOIN courses c ON c.id = b.course_id
		` + where

	var total int
	if err := r.QueryRow(ctx, "SELECT count(*) "+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT b.id, b.learner_id, w.mentor_id, b.course_id, c.title, b.window_id,
		       w.start_time, w.end_time, b.prior_window_id, b.session_type, b.status,
		       b.notes, b.created_at
		%s
		ORDER BY w.start_time DESC, b.id DESC
		LIMIT $%d OFFSET $%d
	`, from, len(args)+1, len(args)+2)

	rows, err := r.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var views []model.BookingView
	for rows.Next() {
		var v model.BookingView
		err := rows.Scan(
			&v.ID,
			&v.LearnerID,
			&v.MentorID,
			&v.CourseID,
			&v.CourseTitle,
			&v.WindowID,
			&v.WindowStart,
			&v.WindowEnd,
			&v.PriorWindowID,
			&v.SessionType,
			&v.Status,
			&v.Notes,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	return views, total, nil
}

// bookingFilterClause строит WHERE для List. Даты фильтруют по началу текущего окна.
func bookingFilterClause(filter model.BookingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.LearnerID != 0 {
		add("b.learner_id = $%d", filter.LearnerID)
	}
	if filter.MentorID != 0 {
		add("w.mentor_id = $%d", filter.MentorID)
	}
	if filter.CourseID != nil {
		add("b.course_id = $%d", *filter.CourseID)
	}
	if filter.Status != nil {
		add("b.status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add("w.start_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("w.start_time <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// RecordTransition добавляет запись в историю бронирования
func (r *BookingRepository) RecordTransition(ctx context.Context, t *model.BookingTransition) error {
	query := `
		INSERT INTO booking_transitions
			(booking_id, transition, from_status, to_status, window_id, prior_window_id, actor_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		t.BookingID,
		t.Transition,
		t.FromStatus,
		t.ToStatus,
		t.WindowID,
		t.PriorWindowID,
		t.ActorID,
		t.Notes,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("record booking transition: %w", err)
	}

	return nil
}

// History получает историю переходов бронирования в порядке записи
func (r *BookingRepository) History(ctx context.Context, bookingID int64) ([]model.BookingTransition, error) {
	query := `
		SELECT id, booking_id, transition, from_status, to_status, window_id, prior_window_id, actor_id, notes, created_at
		FROM booking_transitions
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking history: %w", err)
	}
	defer rows.Close()

	var history []model.BookingTransition
	for rows.Next() {
		var t model.BookingTransition
		err := rows.Scan(
			&t.ID,
			&t.BookingID,
			&t.Transition,
			&t.FromStatus,
			&t.ToStatus,
			&t.WindowID,
			&t.PriorWindowID,
			&t.ActorID,
			&t.Notes,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking transition: %w", err)
		}
		history = append(history, t)
	}

	return history, rows.Err()
}
