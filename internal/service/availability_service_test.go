package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOpenWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.window(t, mentorID, jan(12, 9))
	early := f.window(t, mentorID, jan(10, 9))
	booked := f.window(t, mentorID, jan(11, 9))
	f.window(t, otherMentorID, jan(10, 9))
	f.book(t, learner, booked.ID)

	open, err := f.availability.FindOpenWindows(ctx, mentorID, jan(1, 0), jan(31, 0))
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, early.ID, open[0].WindowID)
	assert.Equal(t, late.ID, open[1].WindowID)
	assert.Equal(t, early.StartTime, open[0].StartTime)
	assert.Equal(t, early.EndTime, open[0].EndTime)

	t.Run("windows touching the range bounds are included", func(t *testing.T) {
		open, err := f.availability.FindOpenWindows(ctx, mentorID, jan(10, 10), jan(12, 9))
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, early.ID, open[0].WindowID)
		assert.Equal(t, late.ID, open[1].WindowID)
	})

	t.Run("range without windows", func(t *testing.T) {
		open, err := f.availability.FindOpenWindows(ctx, mentorID, jan(20, 0), jan(21, 0))
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := f.availability.FindOpenWindows(ctx, mentorID, jan(12, 0), jan(10, 0))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("learner is not a mentor", func(t *testing.T) {
		_, err := f.availability.FindOpenWindows(ctx, learnerID, jan(1, 0), jan(31, 0))
		assert.ErrorIs(t, err, ErrMentorNotFound)
	})

	t.Run("unknown mentor", func(t *testing.T) {
		_, err := f.availability.FindOpenWindows(ctx, 404, jan(1, 0), jan(31, 0))
		assert.ErrorIs(t, err, ErrMentorNotFound)
	})
}

func TestPublishWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.availability.PublishWindow(ctx, mentor, jan(10, 9), jan(10, 10))
	require.NoError(t, err)
	assert.NotZero(t, w.ID)
	assert.Equal(t, mentorID, w.MentorID)

	// окна встык не пересекаются
	_, err = f.availability.PublishWindow(ctx, mentor, jan(10, 10), jan(10, 11))
	require.NoError(t, err)

	// другой ментор может занять то же время
	_, err = f.availability.PublishWindow(ctx, otherMentor, jan(10, 9), jan(10, 10))
	require.NoError(t, err)

	tests := []struct {
		name       string
		actor      model.Actor
		start, end time.Time
		kind       ErrorKind
		code       string
	}{
		{"learner publishes", learner, jan(11, 9), jan(11, 10), KindPermissionDenied, CodePermissionDenied},
		{"end before start", mentor, jan(11, 10), jan(11, 9), KindValidation, CodeInvalidWindow},
		{"zero length", mentor, jan(11, 9), jan(11, 9), KindValidation, CodeInvalidWindow},
		{"in the past", mentor, f.now.Add(-2 * time.Hour), f.now.Add(-time.Hour), KindValidation, CodeWindowNotInFuture},
		{"starts now", mentor, f.now, f.now.Add(time.Hour), KindValidation, CodeWindowNotInFuture},
		{"overlaps existing", mentor, jan(10, 9).Add(30 * time.Minute), jan(10, 10).Add(30 * time.Minute), KindConflict, CodeWindowOverlap},
		{"covers existing", mentor, jan(10, 8), jan(10, 12), KindConflict, CodeWindowOverlap},
		{"unknown mentor account", model.Actor{ID: 404, Role: model.RoleMentor}, jan(11, 9), jan(11, 10), KindNotFound, CodeMentor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.availability.PublishWindow(ctx, tt.actor, tt.start, tt.end)
			assertKind(t, err, tt.kind, tt.code)
		})
	}

	open, err := f.availability.FindOpenWindows(ctx, mentorID, jan(1, 0), jan(31, 0))
	require.NoError(t, err)
	assert.Len(t, open, 2)
}
