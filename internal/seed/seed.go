package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Freeeeeet/mentorbook/internal/model"
)

// Fixture пользователи и курсы, которые сервис бронирований только читает
type Fixture struct {
	Users   []model.User   `json:"users"`
	Courses []model.Course `json:"courses"`
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserCreator interface {
	Create(ctx context.Context, user *model.User) error
}

type CourseCreator interface {
	Create(ctx context.Context, course *model.Course) error
}

// sequenceSyncer реализуют хранилища, которым после вставки явных ID
// нужно сдвинуть генератор идентификаторов
type sequenceSyncer interface {
	SyncSequence(ctx context.Context) error
}

// ReadFile читает JSON-фикстуру
func ReadFile(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read seed file: %w", err)
	}

	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

// Apply вставляет фикстуру одной транзакцией, сохраняя явные ID.
// Повторная загрузка той же фикстуры перезаписывает записи с теми же ID.
func Apply(ctx context.Context, tx Transactor, users UserCreator, courses CourseCreator, f Fixture) error {
	for _, u := range f.Users {
		if !u.Role.Valid() {
			return fmt.Errorf("seed user %d: unknown role %q", u.ID, u.Role)
		}
	}

	return tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := range f.Users {
			u := f.Users[i]
			if err := users.Create(ctx, &u); err != nil {
				return fmt.Errorf("seed user %d: %w", u.ID, err)
			}
		}
		for i := range f.Courses {
			c := f.Courses[i]
			if err := courses.Create(ctx, &c); err != nil {
				return fmt.Errorf("seed course %d: %w", c.ID, err)
			}
		}

		for _, r := range []any{users, courses} {
			if s, ok := r.(sequenceSyncer); ok {
				if err := s.SyncSequence(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Load читает фикстуру из файла и применяет её
func Load(ctx context.Context, path string, tx Transactor, users UserCreator, courses CourseCreator) (Fixture, error) {
	f, err := ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	if err := Apply(ctx, tx, users, courses, f); err != nil {
		return Fixture{}, err
	}
	return f, nil
}
