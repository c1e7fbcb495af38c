package repository_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/app"
	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pgFixture struct {
	tx       *base.Transactor
	users    *repository.UserRepository
	courses  *repository.CourseRepository
	windows  *repository.WindowRepository
	bookings *repository.BookingRepository

	mentor  *model.User
	learner *model.User
	course  *model.Course
}

// newPGFixture подключается к TEST_DB_DSN, накатывает миграции и создаёт
// ментора, ученика и курс. Без TEST_DB_DSN тест пропускается.
func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := app.OpenPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))
	require.NoError(t, migrator.Close())

	f := &pgFixture{
		tx:       base.NewTransactor(pool),
		users:    repository.NewUserRepository(pool),
		courses:  repository.NewCourseRepository(pool),
		windows:  repository.NewWindowRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		mentor:   &model.User{Role: model.RoleMentor, DisplayName: "Maria"},
		learner:  &model.User{Role: model.RoleLearner, DisplayName: "Lena"},
	}
	require.NoError(t, f.users.Create(ctx, f.mentor))
	require.NoError(t, f.users.Create(ctx, f.learner))

	f.course = &model.Course{MentorID: f.mentor.ID, Title: "Go concurrency", IsActive: true}
	require.NoError(t, f.courses.Create(ctx, f.course))
	return f
}

func (f *pgFixture) window(t *testing.T) *model.Window {
	t.Helper()
	start := time.Now().UTC().Truncate(time.Hour).Add(time.Duration(24+rand.Intn(24*365)) * time.Hour)
	w := &model.Window{MentorID: f.mentor.ID, StartTime: start, EndTime: start.Add(time.Hour)}
	require.NoError(t, f.windows.Create(context.Background(), w))
	return w
}

func (f *pgFixture) booking(windowID int64, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		LearnerID:   f.learner.ID,
		CourseID:    f.course.ID,
		WindowID:    windowID,
		SessionType: model.SessionTypeOnline,
		Status:      status,
	}
}

func TestActiveWindowIndexMapsToWindowTaken(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	w := f.window(t)

	first := f.booking(w.ID, model.BookingStatusPending)
	require.NoError(t, f.bookings.Create(ctx, first))

	err := f.bookings.Create(ctx, f.booking(w.ID, model.BookingStatusPending))
	assert.ErrorIs(t, err, repository.ErrWindowTaken)

	first.Status = model.BookingStatusCancelled
	require.NoError(t, f.bookings.Update(ctx, first))

	// отменённое бронирование окно не держит
	assert.NoError(t, f.bookings.Create(ctx, f.booking(w.ID, model.BookingStatusPending)))

	// перенос на занятое окно тоже упирается в индекс
	other := f.window(t)
	moved := f.booking(other.ID, model.BookingStatusScheduled)
	require.NoError(t, f.bookings.Create(ctx, moved))
	moved.PriorWindowID = &other.ID
	moved.WindowID = w.ID
	moved.Status = model.BookingStatusRescheduling
	assert.ErrorIs(t, f.bookings.Update(ctx, moved), repository.ErrWindowTaken)
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	w := f.window(t)

	b := f.booking(w.ID, model.BookingStatusPending)
	require.NoError(t, f.bookings.Create(ctx, b))

	first, err := f.bookings.GetContext(ctx, b.ID)
	require.NoError(t, err)
	second, err := f.bookings.GetContext(ctx, b.ID)
	require.NoError(t, err)

	first.Booking.Status = model.BookingStatusScheduled
	require.NoError(t, f.bookings.Update(ctx, &first.Booking))
	assert.Equal(t, b.Version+1, first.Booking.Version)

	second.Booking.Status = model.BookingStatusCancelled
	assert.ErrorIs(t, f.bookings.Update(ctx, &second.Booking), repository.ErrStaleBooking)

	stored, err := f.bookings.GetContext(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusScheduled, stored.Booking.Status)
}

func TestWindowRowLockBlocksSecondTransaction(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	w := f.window(t)

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := f.windows.GetByIDForUpdate(ctx, w.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()

	select {
	case <-locked:
	case err := <-firstDone:
		t.Fatalf("first transaction ended before locking: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("first transaction did not lock the window")
	}

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- f.tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := f.windows.GetByIDForUpdate(ctx, w.ID)
			return err
		})
	}()

	select {
	case err := <-secondDone:
		close(release)
		t.Fatalf("second transaction locked the window while the first held it: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-firstDone)

	select {
	case err := <-secondDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second transaction did not get the lock after the first committed")
	}
}

func TestConcurrentCreateBookingOnPostgres(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	w := f.window(t)

	bookings := service.NewBookingService(f.tx, f.courses, f.windows, f.bookings, nil, zap.NewNop())
	learner := model.Actor{ID: f.learner.ID, Role: model.RoleLearner}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bookings.CreateBooking(ctx, learner, service.CreateBookingRequest{WindowID: w.ID, CourseID: f.course.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, service.ErrAlreadyBooked):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)

	active, err := f.bookings.ActiveByWindow(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, model.BookingStatusPending, active.Status)
}
