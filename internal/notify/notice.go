package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/google/uuid"
)

// Notice одно сообщение одному участнику бронирования
type Notice struct {
	ID               uuid.UUID         `json:"id"`
	EventID          uuid.UUID         `json:"event_id"`
	BookingID        int64             `json:"booking_id"`
	RecipientID      int64             `json:"recipient_id"`
	RecipientAddress string            `json:"recipient_address"`
	TemplateKey      string            `json:"template_key"`
	Fields           map[string]string `json:"fields"`
}

// UserLookup и CourseLookup реализуются репозиториями любого хранилища
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type CourseLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

// Directory собирает уведомления, подтягивая имена и контакты участников
type Directory struct {
	users   UserLookup
	courses CourseLookup
}

func NewDirectory(users UserLookup, courses CourseLookup) *Directory {
	return &Directory{users: users, courses: courses}
}

// Build превращает событие перехода в уведомление для второй стороны
func (d *Directory) Build(ctx context.Context, event model.TransitionEvent) (*Notice, error) {
	learner, err := d.user(ctx, event.LearnerID)
	if err != nil {
		return nil, err
	}
	mentor, err := d.user(ctx, event.MentorID)
	if err != nil {
		return nil, err
	}

	course, err := d.courses.GetByID(ctx, event.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %d not found", event.CourseID)
	}

	recipient := mentor
	if event.RecipientID() == learner.ID {
		recipient = learner
	}

	display := event.To.Display()
	fields := map[string]string{
		"learner_name": learner.DisplayName,
		"mentor_name":  mentor.DisplayName,
		"course_title": course.Title,
		"window_start": formatDateTime(event.WindowStart),
		"window_range": formatTimeRange(event.WindowStart, event.WindowEnd),
		"status":       display.Emoji + " " + display.Text,
	}
	if event.PriorWindowStart != nil {
		fields["prior_window_start"] = formatDateTime(*event.PriorWindowStart)
	}
	if event.Transition == model.TransitionProposeReschedule && event.Notes != "" {
		fields["notes"] = event.Notes
	}

	return &Notice{
		ID:               uuid.New(),
		EventID:          event.ID,
		BookingID:        event.BookingID,
		RecipientID:      recipient.ID,
		RecipientAddress: recipient.ContactAddress,
		TemplateKey:      event.TemplateKey(),
		Fields:           fields,
	}, nil
}

func (d *Directory) user(ctx context.Context, id int64) (*model.User, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return user, nil
}

func formatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

func formatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}
