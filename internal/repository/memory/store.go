// Package memory хранилище бронирований в памяти процесса.
//
// Даёт те же гарантии, что и схема PostgreSQL: не больше одного
// неотменённого бронирования на окно и обновление бронирования с проверкой версии.
// Транзакции выполняются по одной под общей блокировкой и откатываются из снимка.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository"
)

type txKey struct{}

type state struct {
	users       map[int64]model.User
	courses     map[int64]model.Course
	windows     map[int64]model.Window
	bookings    map[int64]model.Booking
	transitions []model.BookingTransition
	seq         int64
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[int64]model.User, len(s.users)),
		courses:     make(map[int64]model.Course, len(s.courses)),
		windows:     make(map[int64]model.Window, len(s.windows)),
		bookings:    make(map[int64]model.Booking, len(s.bookings)),
		transitions: append([]model.BookingTransition(nil), s.transitions...),
		seq:         s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.windows {
		c.windows[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: &state{
			users:    make(map[int64]model.User),
			courses:  make(map[int64]model.Course),
			windows:  make(map[int64]model.Window),
			bookings: make(map[int64]model.Booking),
		},
		now: time.Now,
	}
}

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

// WithinTx выполняет fn под транзакционной блокировкой хранилища.
// Ошибка fn восстанавливает состояние на момент начала транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Courses() *CourseRepo   { return &CourseRepo{s} }
func (s *Store) Windows() *WindowRepo   { return &WindowRepo{s} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s} }

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == 0 {
		user.ID = r.s.nextID()
	} else if user.ID > r.s.data.seq {
		r.s.data.seq = user.ID
	}
	user.CreatedAt = r.s.now()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type CourseRepo struct{ s *Store }

func (r *CourseRepo) Create(_ context.Context, course *model.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if course.ID == 0 {
		course.ID = r.s.nextID()
	} else if course.ID > r.s.data.seq {
		r.s.data.seq = course.ID
	}
	course.CreatedAt = r.s.now()
	r.s.data.courses[course.ID] = *course
	return nil
}

func (r *CourseRepo) GetByID(_ context.Context, id int64) (*model.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.data.courses[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type WindowRepo struct{ s *Store }

func (r *WindowRepo) Create(_ context.Context, window *model.Window) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	window.ID = r.s.nextID()
	window.CreatedAt = r.s.now()
	r.s.data.windows[window.ID] = *window
	return nil
}

func (r *WindowRepo) GetByID(_ context.Context, id int64) (*model.Window, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.data.windows[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// GetByIDForUpdate совпадает с GetByID: транзакционная блокировка уже исключает других писателей
func (r *WindowRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Window, error) {
	return r.GetByID(ctx, id)
}

func (r *WindowRepo) LockMentor(context.Context, int64) error {
	return nil
}

func (r *WindowRepo) ListOverlapping(_ context.Context, mentorID int64, start, end time.Time) ([]*model.Window, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Window
	for _, w := range r.s.data.windows {
		if w.MentorID == mentorID && w.Overlaps(start, end) {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *WindowRepo) ListOpen(_ context.Context, mentorID int64, from, to time.Time) ([]model.OpenWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	occupied := make(map[int64]bool)
	for _, b := range r.s.data.bookings {
		if b.Status.Occupies() {
			occupied[b.WindowID] = true
		}
	}

	var out []model.OpenWindow
	for _, w := range r.s.data.windows {
		if w.MentorID != mentorID || occupied[w.ID] || !w.Intersects(from, to) {
			continue
		}
		out = append(out, model.OpenWindow{WindowID: w.ID, StartTime: w.StartTime, EndTime: w.EndTime})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].WindowID < out[j].WindowID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

type BookingRepo struct{ s *Store }

// takenBy проверяет, держит ли окно другое активное бронирование. Вызывается под mu.
func (r *BookingRepo) takenBy(windowID, exceptID int64) bool {
	for _, b := range r.s.data.bookings {
		if b.ID != exceptID && b.WindowID == windowID && b.Status.Occupies() {
			return true
		}
	}
	return false
}

func (r *BookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if booking.Status.Occupies() && r.takenBy(booking.WindowID, 0) {
		return repository.ErrWindowTaken
	}

	now := r.s.now()
	booking.ID = r.s.nextID()
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.s.data.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepo) Update(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.data.bookings[booking.ID]
	if !ok || current.Version != booking.Version {
		return repository.ErrStaleBooking
	}
	if booking.Status.Occupies() && r.takenBy(booking.WindowID, booking.ID) {
		return repository.ErrWindowTaken
	}

	booking.Version++
	booking.UpdatedAt = r.s.now()
	r.s.data.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepo) GetContext(_ context.Context, id int64) (*model.BookingContext, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, nil
	}
	w := r.s.data.windows[b.WindowID]
	return &model.BookingContext{
		Booking:     b,
		MentorID:    w.MentorID,
		WindowStart: w.StartTime,
		WindowEnd:   w.EndTime,
	}, nil
}

func (r *BookingRepo) GetContextForUpdate(ctx context.Context, id int64) (*model.BookingContext, error) {
	return r.GetContext(ctx, id)
}

func (r *BookingRepo) ActiveByWindow(_ context.Context, windowID int64) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *model.Booking
	for _, b := range r.s.data.bookings {
		if b.WindowID == windowID && b.Status.Occupies() && (found == nil || b.ID < found.ID) {
			b := b
			found = &b
		}
	}
	return found, nil
}

func (r *BookingRepo) List(_ context.Context, filter model.BookingFilter) ([]model.BookingView, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var views []model.BookingView
	for _, b := range r.s.data.bookings {
		w := r.s.data.windows[b.WindowID]
		switch {
		case filter.LearnerID != 0 && b.LearnerID != filter.LearnerID,
			filter.MentorID != 0 && w.MentorID != filter.MentorID,
			filter.CourseID != nil && b.CourseID != *filter.CourseID,
			filter.Status != nil && b.Status != *filter.Status,
			filter.From != nil && w.StartTime.Before(*filter.From),
			filter.To != nil && w.StartTime.After(*filter.To):
			continue
		}
		views = append(views, model.BookingView{
			ID:            b.ID,
			LearnerID:     b.LearnerID,
			MentorID:      w.MentorID,
			CourseID:      b.CourseID,
			CourseTitle:   r.s.data.courses[b.CourseID].Title,
			WindowID:      b.WindowID,
			WindowStart:   w.StartTime,
			WindowEnd:     w.EndTime,
			PriorWindowID: b.PriorWindowID,
			SessionType:   b.SessionType,
			Status:        b.Status,
			Notes:         b.Notes,
			CreatedAt:     b.CreatedAt,
		})
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].WindowStart.Equal(views[j].WindowStart) {
			return views[i].ID > views[j].ID
		}
		return views[i].WindowStart.After(views[j].WindowStart)
	})

	total := len(views)
	if filter.Offset < 0 || filter.Offset >= total {
		return nil, total, nil
	}
	views = views[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(views) {
		views = views[:filter.Limit]
	}
	return views, total, nil
}

func (r *BookingRepo) RecordTransition(_ context.Context, t *model.BookingTransition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = r.s.nextID()
	t.CreatedAt = r.s.now()
	r.s.data.transitions = append(r.s.data.transitions, *t)
	return nil
}

func (r *BookingRepo) History(_ context.Context, bookingID int64) ([]model.BookingTransition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.BookingTransition
	for _, t := range r.s.data.transitions {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	return out, nil
}
