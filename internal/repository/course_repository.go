package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CourseRepository struct {
	*base.Repository
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт курс. Ненулевой ID сохраняется как есть,
// существующий курс с тем же ID перезаписывается.
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	query := `
		INSERT INTO courses (id, mentor_id, title, is_active)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('courses', 'id'))), $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET mentor_id = EXCLUDED.mentor_id,
		    title = EXCLUDED.title,
		    is_active = EXCLUDED.is_active
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, course.ID, course.MentorID, course.Title, course.IsActive).
		Scan(&course.ID, &course.CreatedAt)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	return nil
}

// SyncSequence продолжает генерацию ID после загруженных курсов
func (r *CourseRepository) SyncSequence(ctx context.Context) error {
	return r.SyncIDSequence(ctx, "courses")
}

// GetByID получает курс по ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT id, mentor_id, title, is_active, created_at
		FROM courses
		WHERE id = $1
	`

	var course model.Course
	err := r.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.MentorID,
		&course.Title,
		&course.IsActive,
		&course.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return &course, nil
}
