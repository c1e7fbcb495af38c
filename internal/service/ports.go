package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
)

// Transactor выполняет fn атомарно. Репозитории, вызванные с ctx из fn,
// работают в той же транзакции
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

type WindowRepository interface {
	Create(ctx context.Context, window *model.Window) error
	GetByID(ctx context.Context, id int64) (*model.Window, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Window, error)
	LockMentor(ctx context.Context, mentorID int64) error
	ListOverlapping(ctx context.Context, mentorID int64, start, end time.Time) ([]*model.Window, error)
	ListOpen(ctx context.Context, mentorID int64, from, to time.Time) ([]model.OpenWindow, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	Update(ctx context.Context, booking *model.Booking) error
	GetContext(ctx context.Context, id int64) (*model.BookingContext, error)
	GetContextForUpdate(ctx context.Context, id int64) (*model.BookingContext, error)
	ActiveByWindow(ctx context.Context, windowID int64) (*model.Booking, error)
	List(ctx context.Context, filter model.BookingFilter) ([]model.BookingView, int, error)
	RecordTransition(ctx context.Context, t *model.BookingTransition) error
	History(ctx context.Context, bookingID int64) ([]model.BookingTransition, error)
}

// EventPublisher принимает события переходов после коммита. Publish не
// блокируется и не возвращает ошибку движку бронирований
type EventPublisher interface {
	Publish(ctx context.Context, event model.TransitionEvent)
}
