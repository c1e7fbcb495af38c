package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending      BookingStatus = "pending"      // Ожидает одобрения ментора
	BookingStatusScheduled    BookingStatus = "scheduled"    // Подтверждено
	BookingStatusRescheduling BookingStatus = "rescheduling" // Ментор предложил другое окно
	BookingStatusCancelled    BookingStatus = "cancelled"    // Отменено
	BookingStatusCompleted    BookingStatus = "completed"    // Завершено
)

// BookingStatuses все статусы в порядке жизненного цикла
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusScheduled,
	BookingStatusRescheduling,
	BookingStatusCancelled,
	BookingStatusCompleted,
}

// ParseBookingStatus разбирает статус из хранилища или запроса
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	switch status {
	case BookingStatusPending, BookingStatusScheduled, BookingStatusRescheduling,
		BookingStatusCancelled, BookingStatusCompleted:
		return status, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// IsTerminal проверяет, что из статуса нет переходов
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Occupies проверяет, держит ли бронирование в этом статусе своё окно
func (s BookingStatus) Occupies() bool {
	return s != BookingStatusCancelled
}

// StatusDisplay представляет отображение статуса бронирования
type StatusDisplay struct {
	Emoji string
	Text  string
}

// Display возвращает emoji и текст для статуса бронирования
func (s BookingStatus) Display() StatusDisplay {
	switch s {
	case BookingStatusPending:
		return StatusDisplay{"⏳", "Awaiting mentor approval"}
	case BookingStatusScheduled:
		return StatusDisplay{"✅", "Scheduled"}
	case BookingStatusRescheduling:
		return StatusDisplay{"🔄", "New time proposed"}
	case BookingStatusCancelled:
		return StatusDisplay{"❌", "Cancelled"}
	case BookingStatusCompleted:
		return StatusDisplay{"✔️", "Completed"}
	}
	return StatusDisplay{"❓", "Unknown"}
}

type SessionType string

const (
	SessionTypeOnline   SessionType = "online"
	SessionTypeInPerson SessionType = "in_person"
)

// ParseSessionType проверяет формат занятия. Пустое значение означает online
func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(s) {
	case "":
		return SessionTypeOnline, nil
	case SessionTypeOnline, SessionTypeInPerson:
		return SessionType(s), nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

type Booking struct {
	ID            int64         `json:"id"`
	LearnerID     int64         `json:"learner_id"`
	CourseID      int64         `json:"course_id"`
	WindowID      int64         `json:"window_id"`
	PriorWindowID *int64        `json:"prior_window_id"` // заполнено только в статусе rescheduling
	SessionType   SessionType   `json:"session_type"`
	Status        BookingStatus `json:"status"`
	Notes         string        `json:"notes"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// BookingContext бронирование вместе с окном, которое оно сейчас держит
type BookingContext struct {
	Booking     Booking
	MentorID    int64
	WindowStart time.Time
	WindowEnd   time.Time
}

// BookingView плоская модель бронирования для списков
type BookingView struct {
	ID            int64         `json:"id"`
	LearnerID     int64         `json:"learner_id"`
	MentorID      int64         `json:"mentor_id"`
	CourseID      int64         `json:"course_id"`
	CourseTitle   string        `json:"course_title"`
	WindowID      int64         `json:"window_id"`
	WindowStart   time.Time     `json:"window_start"`
	WindowEnd     time.Time     `json:"window_end"`
	PriorWindowID *int64        `json:"prior_window_id,omitempty"`
	SessionType   SessionType   `json:"session_type"`
	Status        BookingStatus `json:"status"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"created_at"`
}

// BookingFilter фильтр списка бронирований. Задан ровно один из LearnerID и MentorID.
type BookingFilter struct {
	LearnerID int64
	MentorID  int64
	CourseID  *int64
	Status    *BookingStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type BookingPage struct {
	Items    []BookingView `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type Transition string

const (
	TransitionCreate            Transition = "create"
	TransitionApprove           Transition = "approve"
	TransitionRejectReschedule  Transition = "reject_reschedule"
	TransitionProposeReschedule Transition = "propose_reschedule"
	TransitionComplete          Transition = "complete"
)

// BookingTransition запись журнала переходов бронирования
type BookingTransition struct {
	ID            int64         `json:"id"`
	BookingID     int64         `json:"booking_id"`
	Transition    Transition    `json:"transition"`
	FromStatus    BookingStatus `json:"from_status,omitempty"`
	ToStatus      BookingStatus `json:"to_status"`
	WindowID      int64         `json:"window_id"`
	PriorWindowID *int64        `json:"prior_window_id,omitempty"`
	ActorID       int64         `json:"actor_id"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
