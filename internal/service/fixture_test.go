package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/memory"
	"github.com/Freeeeeet/mentorbook/internal/seed"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.TransitionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []model.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.TransitionEvent(nil), p.events...)
}

const (
	mentorID       int64 = 1
	otherMentorID  int64 = 2
	learnerID      int64 = 3
	otherLearnerID int64 = 4

	courseID         int64 = 10
	otherCourseID    int64 = 11
	inactiveCourseID int64 = 12
)

var (
	mentor       = model.Actor{ID: mentorID, Role: model.RoleMentor}
	otherMentor  = model.Actor{ID: otherMentorID, Role: model.RoleMentor}
	learner      = model.Actor{ID: learnerID, Role: model.RoleLearner}
	otherLearner = model.Actor{ID: otherLearnerID, Role: model.RoleLearner}
)

type fixture struct {
	store        *memory.Store
	bookings     *BookingService
	availability *AvailabilityService
	events       *recordingPublisher
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	err := seed.Apply(context.Background(), store, store.Users(), store.Courses(), seed.Fixture{
		Users: []model.User{
			{ID: mentorID, Role: model.RoleMentor, DisplayName: "Maria", ContactAddress: "1001"},
			{ID: otherMentorID, Role: model.RoleMentor, DisplayName: "Oleg", ContactAddress: "1002"},
			{ID: learnerID, Role: model.RoleLearner, DisplayName: "Lena", ContactAddress: "1003"},
			{ID: otherLearnerID, Role: model.RoleLearner, DisplayName: "Ivan", ContactAddress: "1004"},
		},
		Courses: []model.Course{
			{ID: courseID, MentorID: mentorID, Title: "Go concurrency", IsActive: true},
			{ID: otherCourseID, MentorID: otherMentorID, Title: "SQL", IsActive: true},
			{ID: inactiveCourseID, MentorID: mentorID, Title: "Archived", IsActive: false},
		},
	})
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	events := &recordingPublisher{}

	bookings := NewBookingService(store, store.Courses(), store.Windows(), store.Bookings(), events, zap.NewNop())
	bookings.SetClock(clock)

	availability := NewAvailabilityService(store, store.Users(), store.Windows(), zap.NewNop())
	availability.SetClock(clock)

	return &fixture{
		store:        store,
		bookings:     bookings,
		availability: availability,
		events:       events,
		now:          now,
	}
}

// window inserts a one-hour window directly, bypassing publication rules
func (f *fixture) window(t *testing.T, mentorID int64, start time.Time) *model.Window {
	t.Helper()
	w := &model.Window{MentorID: mentorID, StartTime: start, EndTime: start.Add(time.Hour)}
	require.NoError(t, f.store.Windows().Create(context.Background(), w))
	return w
}

func (f *fixture) book(t *testing.T, actor model.Actor, windowID int64) *model.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), actor, CreateBookingRequest{
		WindowID: windowID,
		CourseID: courseID,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) openIDs(t *testing.T, mentorID int64) []int64 {
	t.Helper()
	open, err := f.availability.FindOpenWindows(context.Background(), mentorID, f.now, f.now.AddDate(1, 0, 0))
	require.NoError(t, err)
	ids := make([]int64, 0, len(open))
	for _, w := range open {
		ids = append(ids, w.WindowID)
	}
	return ids
}

func jan(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}
