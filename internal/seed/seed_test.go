package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func TestLoadIntoMemory(t *testing.T) {
	path := writeFixture(t, `{
		"users": [
			{"id": 1, "role": "mentor", "display_name": "Maria"},
			{"id": 2, "role": "learner", "display_name": "Leo", "contact_address": "42"}
		],
		"courses": [{"id": 10, "mentor_id": 1, "title": "Go basics", "is_active": true}]
	}`)

	ctx := context.Background()
	s := memory.NewStore()
	f, err := Load(ctx, path, s, s.Users(), s.Courses())
	require.NoError(t, err)
	assert.Len(t, f.Users, 2)

	u, err := s.Users().GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "42", u.ContactAddress)

	c, err := s.Courses().GetByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1), c.MentorID)

	// сгенерированные ID идут после загруженных
	w := &model.Window{MentorID: 1, StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	require.NoError(t, s.Windows().Create(ctx, w))
	assert.Greater(t, w.ID, int64(10))
}

func TestLoadErrors(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	_, err := Load(ctx, filepath.Join(t.TempDir(), "absent.json"), s, s.Users(), s.Courses())
	assert.Error(t, err)

	_, err = Load(ctx, writeFixture(t, `{"users": [`), s, s.Users(), s.Courses())
	assert.Error(t, err)
}

func TestApplyRejectsUnknownRole(t *testing.T) {
	s := memory.NewStore()
	err := Apply(context.Background(), s, s.Users(), s.Courses(), Fixture{Users: []model.User{{ID: 1, Role: "admin"}}})
	assert.Error(t, err)

	u, err := s.Users().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, u)
}

type failingCourses struct{}

func (failingCourses) Create(context.Context, *model.Course) error {
	return errors.New("disk full")
}

type syncingUsers struct {
	*memory.UserRepo
	synced int
}

func (u *syncingUsers) SyncSequence(context.Context) error {
	u.synced++
	return nil
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	users := &syncingUsers{UserRepo: s.Users()}

	err := Apply(ctx, s, users, failingCourses{}, Fixture{
		Users:   []model.User{{ID: 1, Role: model.RoleMentor, DisplayName: "Maria"}},
		Courses: []model.Course{{ID: 10, MentorID: 1, Title: "Go"}},
	})
	require.Error(t, err)
	assert.Zero(t, users.synced)

	u, err := s.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, Apply(ctx, s, users, s.Courses(), Fixture{
		Users: []model.User{{ID: 1, Role: model.RoleMentor, DisplayName: "Maria"}},
	}))
	assert.Equal(t, 1, users.synced)
}
