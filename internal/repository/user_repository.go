package repository

import (
	"context"
	"database/sql"
	"errors"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/util"

	"github.com/lib/pq"
)

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет нового пользователя
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
	INSERT INTO users (uuid, email, password_hash, roles, is_active)
	VALUES ($1, $2, $3, $4, TRUE)
	RETURNING uuid, email, roles, is_active, created_at
	`

	createdUser := &model.User{}
	err := r.DB.QueryRowxContext(ctx, query, user.UUID, user.Email, user.PasswordHash, pq.Array(user.Roles)).
		Scan(&createdUser.UUID, &createdUser.Email, &createdUser.Roles, &createdUser.IsActive, &createdUser.CreatedAt)

	if err != nil {
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return createdUser, nil
}

// FindByUUID : ищет пользователя по UUID.
// Для несуществующего пользователя возвращает security.ErrPrincipalInactive:
// с точки зрения сессий отсутствующий и деактивированный неразличимы.
func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, roles, is_active, created_at FROM users WHERE uuid = $1`
	var user model.User
	err := r.DB.GetContext(ctx, &user, query, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, security.ErrPrincipalInactive
		}
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByEmail : ищет пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, roles, is_active, created_at FROM users WHERE email = $1`
	var user model.User
	err := r.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, security.ErrPrincipalInactive
		}
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по email", err)
	}
	return &user, nil
}

// Exists : проверяет, существует ли пользователь по UUID
func (r *UserRepository) Exists(ctx context.Context, uuid string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE uuid = $1)`
	err := r.DB.GetContext(ctx, &exists, query, uuid)
	if err != nil {
		return false, util.LogError("[UserRepo] ошибка проверки существования пользователя", err)
	}
	return exists, nil
}
