package model

import (
	"time"

	"github.com/google/uuid"
)

// TransitionEvent публикуется после коммита перехода бронирования
type TransitionEvent struct {
	ID               uuid.UUID     `json:"id"`
	BookingID        int64         `json:"booking_id"`
	Transition       Transition    `json:"transition"`
	From             BookingStatus `json:"from,omitempty"`
	To               BookingStatus `json:"to"`
	ActorID          int64         `json:"actor_id"`
	ActorRole        Role          `json:"actor_role"`
	LearnerID        int64         `json:"learner_id"`
	MentorID         int64         `json:"mentor_id"`
	CourseID         int64         `json:"course_id"`
	WindowID         int64         `json:"window_id"`
	WindowStart      time.Time     `json:"window_start"`
	WindowEnd        time.Time     `json:"window_end"`
	PriorWindowID    *int64        `json:"prior_window_id,omitempty"`
	PriorWindowStart *time.Time    `json:"prior_window_start,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

// TemplateKey возвращает ключ шаблона уведомления.
// Одобрение из rescheduling означает, что ученик принял новое время.
func (e TransitionEvent) TemplateKey() string {
	switch e.Transition {
	case TransitionCreate:
		return "booking.created"
	case TransitionApprove:
		if e.From == BookingStatusRescheduling {
			return "booking.reschedule_accepted"
		}
		return "booking.approved"
	case TransitionProposeReschedule:
		return "booking.reschedule_proposed"
	case TransitionRejectReschedule:
		return "booking.reschedule_rejected"
	case TransitionComplete:
		return "booking.completed"
	}
	return "booking.updated"
}

// RecipientID возвращает вторую сторону бронирования относительно актора
func (e TransitionEvent) RecipientID() int64 {
	if e.ActorID == e.MentorID {
		return e.LearnerID
	}
	return e.MentorID
}
