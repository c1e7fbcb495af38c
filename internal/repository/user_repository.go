package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт пользователя. Ненулевой ID сохраняется как есть,
// существующий пользователь с тем же ID перезаписывается.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, role, display_name, contact_address)
		VALUES (COALESCE(NULLIF($1::bigint, 0), nextval(pg_get_serial_sequence('users', 'id'))), $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET role = EXCLUDED.role,
		    display_name = EXCLUDED.display_name,
		    contact_address = EXCLUDED.contact_address
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.ID,
		user.Role,
		user.DisplayName,
		user.ContactAddress,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// SyncSequence продолжает генерацию ID после загруженных пользователей
func (r *UserRepository) SyncSequence(ctx context.Context) error {
	return r.SyncIDSequence(ctx, "users")
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, role, display_name, contact_address, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Role,
		&user.DisplayName,
		&user.ContactAddress,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}
