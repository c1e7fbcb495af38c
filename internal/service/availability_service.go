package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"go.uber.org/zap"
)

// AvailabilityService владеет окнами менторов и отвечает на вопрос, какие из них свободны
type AvailabilityService struct {
	tx      Transactor
	users   UserRepository
	windows WindowRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewAvailabilityService(
	tx Transactor,
	users UserRepository,
	windows WindowRepository,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		tx:      tx,
		users:   users,
		windows: windows,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock подменяет источник текущего времени
func (s *AvailabilityService) SetClock(now func() time.Time) {
	s.now = now
}

// FindOpenWindows возвращает свободные окна ментора, пересекающиеся с [from, to], по времени начала
func (s *AvailabilityService) FindOpenWindows(ctx context.Context, mentorID int64, from, to time.Time) ([]model.OpenWindow, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	mentor, err := s.users.GetByID(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("get mentor: %w", err)
	}
	if mentor == nil || !mentor.IsMentor() {
		return nil, ErrMentorNotFound
	}

	windows, err := s.windows.ListOpen(ctx, mentorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list open windows: %w", err)
	}

	return windows, nil
}

// PublishWindow создаёт новое окно ментора
func (s *AvailabilityService) PublishWindow(ctx context.Context, actor model.Actor, start, end time.Time) (*model.Window, error) {
	if actor.Role != model.RoleMentor {
		return nil, permissionDenied("only mentors can publish windows")
	}
	if !end.After(start) {
		return nil, validation(CodeInvalidWindow, "window end must be after its start")
	}
	if !start.After(s.now()) {
		return nil, ErrWindowInPast
	}

	window := &model.Window{
		MentorID:  actor.ID,
		StartTime: start,
		EndTime:   end,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		mentor, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("get mentor: %w", err)
		}
		if mentor == nil || !mentor.IsMentor() {
			return ErrMentorNotFound
		}

		if err := s.windows.LockMentor(ctx, actor.ID); err != nil {
			return err
		}

		overlapping, err := s.windows.ListOverlapping(ctx, actor.ID, start, end)
		if err != nil {
			return fmt.Errorf("check overlapping windows: %w", err)
		}
		if len(overlapping) > 0 {
			return ErrWindowOverlap
		}

		return s.windows.Create(ctx, window)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Window published",
		zap.Int64("window_id", window.ID),
		zap.Int64("mentor_id", actor.ID),
		zap.Time("start_time", start),
		zap.Time("end_time", end),
	)

	return window, nil
}
