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

// SessionRepository хранит записи refresh-токенов в таблице refresh_tokens.
// На (family_uuid, generation) стоит UNIQUE-ограничение: поколения внутри
// семейства строго возрастают без повторов.
type SessionRepository struct {
	*config.Database
}

func NewSessionRepository(database *config.Database) *SessionRepository {
	return &SessionRepository{database}
}

// Create сохраняет новую неотозванную запись refresh-токена.
// Возвращает security.ErrDuplicateGeneration, если поколение в семействе
// уже занято — при корректной последовательной работе такого не бывает.
func (r *SessionRepository) Create(ctx context.Context, refreshToken *model.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (uuid, user_uuid, family_uuid, generation, token_hash, expire_at, revoked)
				VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`

	_, err := r.DB.ExecContext(ctx, query,
		refreshToken.UUID,
		refreshToken.UserUUID,
		refreshToken.FamilyUUID,
		refreshToken.Generation,
		refreshToken.TokenHash,
		refreshToken.ExpireAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return security.ErrDuplicateGeneration
		}
		return util.LogError("[SessionRepo] ошибка вставки данных в БД", err)
	}

	return nil
}

// FindByUUID ищет запись refresh-токена по её UUID (jti токена).
func (r *SessionRepository) FindByUUID(ctx context.Context, refreshTokenUUID string) (*model.RefreshToken, error) {
	query := `SELECT uuid, user_uuid, family_uuid, generation, token_hash, expire_at, revoked, replaced_by
				FROM refresh_tokens WHERE uuid = $1`

	refreshToken := &model.RefreshToken{}

	err := r.DB.QueryRowContext(ctx, query, refreshTokenUUID).Scan(
		&refreshToken.UUID,
		&refreshToken.UserUUID,
		&refreshToken.FamilyUUID,
		&refreshToken.Generation,
		&refreshToken.TokenHash,
		&refreshToken.ExpireAt,
		&refreshToken.Revoked,
		&refreshToken.ReplacedBy,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, security.ErrInvalidToken
		}
		return nil, util.LogError("[SessionRepo] ошибка при выполнении запроса", err)
	}

	return refreshToken, nil
}

// Rotate атомарно заменяет активную запись семейства на следующую:
// в одной транзакции помечает старую запись отозванной с указателем
// replaced_by и вставляет новую запись поколения N+1. Условие
// revoked = FALSE в UPDATE и есть compare-and-swap: из двух одновременных
// ротаций одного токена пройдёт ровно одна, вторая получит
// security.ErrAlreadyRotated.
func (r *SessionRepository) Rotate(ctx context.Context, oldUUID string, newToken *model.RefreshToken) error {
	// даже если клиент отвалился посреди ротации, транзакция
	// обязана дойти до конца: частичная ротация недопустима
	ctx = context.WithoutCancel(ctx)

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return util.LogError("[SessionRepo] не удалось начать транзакцию", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW(), replaced_by = $2
		WHERE uuid = $1 AND revoked = FALSE`,
		oldUUID, newToken.UUID,
	)
	if err != nil {
		return util.LogError("[SessionRepo] не удалось отозвать старый токен", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[SessionRepo] не удалось проверить, отозван ли токен", err)
	}
	if rowsAffected == 0 {
		return security.ErrAlreadyRotated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (uuid, user_uuid, family_uuid, generation, token_hash, expire_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`,
		newToken.UUID,
		newToken.UserUUID,
		newToken.FamilyUUID,
		newToken.Generation,
		newToken.TokenHash,
		newToken.ExpireAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return security.ErrDuplicateGeneration
		}
		return util.LogError("[SessionRepo] не удалось вставить новый токен", err)
	}

	if err := tx.Commit(); err != nil {
		return util.LogError("[SessionRepo] не удалось закоммитить ротацию", err)
	}

	return nil
}

// RevokeFamily отзывает все записи семейства независимо от их состояния.
// Операция идемпотентна.
func (r *SessionRepository) RevokeFamily(ctx context.Context, familyUUID string) error {
	ctx = context.WithoutCancel(ctx)

	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE family_uuid = $1 AND revoked = FALSE`

	if _, err := r.DB.ExecContext(ctx, query, familyUUID); err != nil {
		return util.LogError("[SessionRepo] не удалось отозвать семейство токенов", err)
	}

	return nil
}

// DeleteExpired удаляет записи, срок действия которых истёк раньше порога.
// Вызывается фоновой чисткой, на корректность ротации не влияет.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expire_at < NOW()`)
	if err != nil {
		return 0, util.LogError("[SessionRepo] не удалось удалить просроченные токены", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, util.LogError("[SessionRepo] не удалось получить число удалённых строк", err)
	}

	return deleted, nil
}
