package repository

import (
	"testing"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBookingFilterClause(t *testing.T) {
	courseID := int64(7)
	status := model.BookingStatusScheduled
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	tests := []struct {
		name   string
		filter model.BookingFilter
		where  string
		args   []any
	}{
		{
			name:   "empty filter",
			filter: model.BookingFilter{},
			where:  "",
			args:   nil,
		},
		{
			name:   "learner scope",
			filter: model.BookingFilter{LearnerID: 3},
			where:  "WHERE b.learner_id = $1",
			args:   []any{int64(3)},
		},
		{
			name: "mentor scope with every filter",
			filter: model.BookingFilter{
				MentorID: 5,
				CourseID: &courseID,
				Status:   &status,
				From:     &from,
				To:       &to,
			},
			where: "WHERE w.mentor_id = $1 AND b.course_id = $2 AND b.status = $3 AND w.start_time >= $4 AND w.start_time <= $5",
			args:  []any{int64(5), courseID, status, from, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := bookingFilterClause(tt.filter)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}
