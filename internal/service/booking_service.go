package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/mentorbook/internal/guard"
	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxNotesLength  = 2000
	defaultPageSize = 20
	maxPageSize     = 100
)

type BookingService struct {
	tx       Transactor
	courses  CourseRepository
	windows  WindowRepository
	bookings BookingRepository
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(
	tx Transactor,
	courses CourseRepository,
	windows WindowRepository,
	bookings BookingRepository,
	events EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:       tx,
		courses:  courses,
		windows:  windows,
		bookings: bookings,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock подменяет источник текущего времени
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

type CreateBookingRequest struct {
	WindowID    int64
	CourseID    int64
	SessionType string
}

// CreateBooking бронирует свободное окно для ученика. Бронирование создаётся в статусе pending.
func (s *BookingService) CreateBooking(ctx context.Context, actor model.Actor, req CreateBookingRequest) (*model.Booking, error) {
	decision := guard.Check(guard.Request{Transition: model.TransitionCreate, Role: actor.Role})
	if err := denial(decision); err != nil {
		return nil, err
	}

	sessionType, err := model.ParseSessionType(req.SessionType)
	if err != nil {
		return nil, validation(CodeSessionType, err.Error())
	}

	now := s.now()
	booking := &model.Booking{
		LearnerID:   actor.ID,
		CourseID:    req.CourseID,
		WindowID:    req.WindowID,
		SessionType: sessionType,
		Status:      decision.Target,
	}

	var window *model.Window
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		course, err := s.courses.GetByID(ctx, req.CourseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return ErrCourseNotFound
		}
		if !course.IsActive {
			return validation(CodeCourseInactive, "course is not open for booking")
		}

		// Блокируем окно, чтобы параллельные запросы на него шли по очереди
		window, err = s.windows.GetByIDForUpdate(ctx, req.WindowID)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		if window == nil {
			return ErrWindowNotFound
		}
		if course.MentorID != window.MentorID {
			return validation(CodeMentorMismatch, "course and window belong to different mentors")
		}
		if !window.StartsAfter(now) {
			return ErrWindowInPast
		}

		if err := s.ensureBookable(ctx, window.ID, 0); err != nil {
			return err
		}

		if err := s.bookings.Create(ctx, booking); err != nil {
			return storeError(err, "create booking")
		}

		return s.record(ctx, actor, model.TransitionCreate, "", booking, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("learner_id", actor.ID),
		zap.Int64("window_id", booking.WindowID),
		zap.Int64("course_id", booking.CourseID),
	)

	s.publish(ctx, s.event(actor, model.TransitionCreate, "", &model.BookingContext{
		Booking:     *booking,
		MentorID:    window.MentorID,
		WindowStart: window.StartTime,
		WindowEnd:   window.EndTime,
	}, nil, nil))

	return booking, nil
}

// ApproveBooking одобряет бронирование.
// Ментор подтверждает pending, ученик принимает предложенное ментором окно.
func (s *BookingService) ApproveBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	return s.apply(ctx, actor, bookingID, model.TransitionApprove, nil)
}

// RejectReschedule отклоняет предложенный перенос, бронирование отменяется
func (s *BookingService) RejectReschedule(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	return s.apply(ctx, actor, bookingID, model.TransitionRejectReschedule, nil)
}

// CompleteBooking отмечает проведённое занятие
func (s *BookingService) CompleteBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	return s.apply(ctx, actor, bookingID, model.TransitionComplete, nil)
}

// ProposeReschedule переносит pending бронирование в другое окно того же ментора
// и ждёт ответа ученика. Прежнее окно освобождается сразу.
func (s *BookingService) ProposeReschedule(ctx context.Context, actor model.Actor, bookingID, windowID int64, notes string) (*model.Booking, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, validation(CodeNotesTooLong, fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}

	now := s.now()
	return s.apply(ctx, actor, bookingID, model.TransitionProposeReschedule, func(ctx context.Context, bc *model.BookingContext) error {
		window, err := s.windows.GetByIDForUpdate(ctx, windowID)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		if window == nil {
			return ErrWindowNotFound
		}
		if window.MentorID != bc.MentorID {
			return validation(CodeMentorMismatch, "new window belongs to another mentor")
		}
		if !window.StartsAfter(now) {
			return ErrWindowInPast
		}

		// Перенос в то же окно не конфликтует сам с собой
		if err := s.ensureBookable(ctx, window.ID, bc.Booking.ID); err != nil {
			return err
		}

		prior := bc.Booking.WindowID
		bc.Booking.PriorWindowID = &prior
		bc.Booking.WindowID = window.ID
		bc.Booking.Notes = notes
		bc.WindowStart = window.StartTime
		bc.WindowEnd = window.EndTime
		return nil
	})
}

// apply загружает бронирование под блокировкой, проверяет права через guard,
// применяет mutate и сохраняет переход с проверкой версии
func (s *BookingService) apply(
	ctx context.Context,
	actor model.Actor,
	bookingID int64,
	transition model.Transition,
	mutate func(ctx context.Context, bc *model.BookingContext) error,
) (*model.Booking, error) {
	var (
		bc         *model.BookingContext
		from       model.BookingStatus
		prior      *int64
		priorStart *time.Time
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		bc, err = s.bookings.GetContextForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if bc == nil {
			return ErrBookingNotFound
		}

		decision := guard.Check(guard.Request{
			Transition: transition,
			Role:       actor.Role,
			Relation:   guard.RelationOf(actor, bc.Booking.LearnerID, bc.MentorID),
			Status:     bc.Booking.Status,
		})
		if err := denial(decision); err != nil {
			return err
		}

		from = bc.Booking.Status
		prior = bc.Booking.PriorWindowID
		start := bc.WindowStart

		if mutate != nil {
			if err := mutate(ctx, bc); err != nil {
				return err
			}
		}

		bc.Booking.Status = decision.Target
		if bc.Booking.Status != model.BookingStatusRescheduling {
			bc.Booking.PriorWindowID = nil
		} else {
			prior = bc.Booking.PriorWindowID
			priorStart = &start
		}

		if err := s.bookings.Update(ctx, &bc.Booking); err != nil {
			return storeError(err, "update booking")
		}

		// В истории сохраняем прежнее окно даже после его очистки в бронировании
		return s.record(ctx, actor, transition, from, &bc.Booking, prior)
	})
	if err != nil {
		s.logger.Debug("Booking transition refused",
			zap.Int64("booking_id", bookingID),
			zap.Int64("actor_id", actor.ID),
			zap.String("transition", string(transition)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Booking transition applied",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.ID),
		zap.String("transition", string(transition)),
		zap.String("from", string(from)),
		zap.String("to", string(bc.Booking.Status)),
		zap.Int64("window_id", bc.Booking.WindowID),
	)

	s.publish(ctx, s.event(actor, transition, from, bc, prior, priorStart))

	booking := bc.Booking
	return &booking, nil
}

// ensureBookable проверяет, что на окно нет активных бронирований, кроме exceptID
func (s *BookingService) ensureBookable(ctx context.Context, windowID, exceptID int64) error {
	active, err := s.bookings.ActiveByWindow(ctx, windowID)
	if err != nil {
		return fmt.Errorf("check window occupancy: %w", err)
	}
	if active != nil && active.ID != exceptID {
		return ErrAlreadyBooked
	}
	return nil
}

func (s *BookingService) record(
	ctx context.Context,
	actor model.Actor,
	transition model.Transition,
	from model.BookingStatus,
	booking *model.Booking,
	prior *int64,
) error {
	entry := &model.BookingTransition{
		BookingID:     booking.ID,
		Transition:    transition,
		FromStatus:    from,
		ToStatus:      booking.Status,
		WindowID:      booking.WindowID,
		PriorWindowID: prior,
		ActorID:       actor.ID,
	}
	if transition == model.TransitionProposeReschedule {
		entry.Notes = booking.Notes
	}

	if err := s.bookings.RecordTransition(ctx, entry); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (s *BookingService) event(
	actor model.Actor,
	transition model.Transition,
	from model.BookingStatus,
	bc *model.BookingContext,
	prior *int64,
	priorStart *time.Time,
) model.TransitionEvent {
	return model.TransitionEvent{
		ID:               uuid.New(),
		BookingID:        bc.Booking.ID,
		Transition:       transition,
		From:             from,
		To:               bc.Booking.Status,
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		LearnerID:        bc.Booking.LearnerID,
		MentorID:         bc.MentorID,
		CourseID:         bc.Booking.CourseID,
		WindowID:         bc.Booking.WindowID,
		WindowStart:      bc.WindowStart,
		WindowEnd:        bc.WindowEnd,
		PriorWindowID:    prior,
		PriorWindowStart: priorStart,
		Notes:            bc.Booking.Notes,
		OccurredAt:       s.now(),
	}
}

func (s *BookingService) publish(ctx context.Context, event model.TransitionEvent) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, event)
}

type ListBookingsRequest struct {
	CourseID *int64
	Status   *model.BookingStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListBookings возвращает страницу бронирований, видимых актору:
// ученику его собственные, ментору бронирования на его окна
func (s *BookingService) ListBookings(ctx context.Context, actor model.Actor, req ListBookingsRequest) (*model.BookingPage, error) {
	filter := model.BookingFilter{
		CourseID: req.CourseID,
		Status:   req.Status,
		From:     req.From,
		To:       req.To,
	}

	switch actor.Role {
	case model.RoleLearner:
		filter.LearnerID = actor.ID
	case model.RoleMentor:
		filter.MentorID = actor.ID
	default:
		return nil, permissionDenied("unknown role")
	}

	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, ErrInvalidRange
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	// смещение должно помещаться в int
	if page-1 > math.MaxInt/pageSize {
		return nil, ErrPageOutOfRange
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	items, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if items == nil {
		items = []model.BookingView{}
	}

	return &model.BookingPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// BookingHistory возвращает журнал переходов бронирования его участникам
func (s *BookingService) BookingHistory(ctx context.Context, actor model.Actor, bookingID int64) ([]model.BookingTransition, error) {
	bc, err := s.bookings.GetContext(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if bc == nil {
		return nil, ErrBookingNotFound
	}
	if guard.RelationOf(actor, bc.Booking.LearnerID, bc.MentorID) == guard.RelationNone {
		return nil, permissionDenied("booking belongs to other users")
	}

	history, err := s.bookings.History(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking history: %w", err)
	}
	return history, nil
}

func denial(d guard.Decision) error {
	switch d.Outcome {
	case guard.Allow:
		return nil
	case guard.DenyPermission:
		return permissionDenied(d.Reason)
	}
	return conflict(CodeWrongStatus, d.Reason)
}

// storeError переводит ошибки ограничений хранилища в конфликты
func storeError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrWindowTaken):
		return ErrAlreadyBooked
	case errors.Is(err, repository.ErrStaleBooking):
		return ErrConcurrentUpdate
	}
	return fmt.Errorf("%s: %w", op, err)
}
