package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/ports"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/util"

	"github.com/google/uuid"
)

// TokenService управляет жизненным циклом сессионных токенов:
// выпуск пары при логине, ротация refresh-токена и отзыв семейства.
// Все зависимости приходят через конструктор.
type TokenService struct {
	sessionRepository ports.SessionRepositoryInterface
	jwtService        ports.JWTServiceInterface
	userRepository    ports.UserRepository
}

func NewTokenService(
	sessionRepository ports.SessionRepositoryInterface,
	jwtService ports.JWTServiceInterface,
	userRepository ports.UserRepository,
) *TokenService {
	return &TokenService{
		sessionRepository: sessionRepository,
		jwtService:        jwtService,
		userRepository:    userRepository,
	}
}

// Login проверяет учётные данные и выпускает пару токенов.
// Для сессии заводится новое семейство, запись нулевого поколения
// сохраняется в БД. Refresh-токен из пары должен уходить клиенту
// только через HttpOnly cookie.
func (s *TokenService) Login(ctx context.Context, email, password string) (*model.TokensPair, error) {
	user, err := s.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("пользователь не найден: %w", err)
	}

	if !user.IsActive {
		return nil, security.ErrPrincipalInactive
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("неверный email или пароль: %w", security.ErrUnauthorized)
	}

	familyUUID := uuid.New().String()

	tokens, record, err := s.jwtService.IssueTokens(user, familyUUID, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	if err := s.sessionRepository.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("ошибка сохранения refresh токена: %w", err)
	}

	return tokens, nil
}

// Rotate обменивает действующий refresh-токен на новую пару.
// Выполняет следующие требования к операции ротации:
//  1. Ротация возможна только активной (неотозванной и непросроченной)
//     записью семейства; внутри семейства в любой момент активна максимум одна.
//  2. Повторное использование уже ротированного токена считается признаком
//     кражи: всё семейство отзывается, все сессии из него завершаются.
//  3. Гонка двух одновременных ротаций одним токеном разрешается атомарным
//     условным обновлением в хранилище; проигравший получает тот же отзыв
//     семейства, что и при краже — политика сознательно жертвует
//     доступностью ради безопасности.
//
// Возвращает:
//   - model.TokensPair с access-токеном нового поколения
//   - ошибку из таксономии безопасности, если ротация запрещена
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*model.TokensPair, error) {
	claims, err := s.jwtService.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrExpired) {
			// просроченный refresh лечится только повторным логином
			return nil, security.ErrExpired
		}
		return nil, security.ErrInvalidToken
	}

	record, err := s.sessionRepository.FindByUUID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}

	if security.HashToken(refreshToken) != record.TokenHash {
		return nil, security.ErrInvalidToken
	}

	if time.Now().UTC().After(record.ExpireAt) {
		log.Printf("[TokenService] refresh token %s просрочен", record.UUID)
		return nil, security.ErrExpired
	}

	if record.Revoked {
		// токен уже был ротирован или отозван раньше: повтор исторического
		// токена, отзываем семейство целиком
		log.Printf("[TokenService] refresh token %s уже был использован, отзыв семейства %s", record.UUID, record.FamilyUUID)
		if err := s.sessionRepository.RevokeFamily(ctx, record.FamilyUUID); err != nil {
			return nil, err
		}
		return nil, security.ErrReplayDetected
	}

	user, err := s.userRepository.FindByUUID(ctx, record.UserUUID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, security.ErrPrincipalInactive
	}

	tokensPair, newRecord, err := s.jwtService.IssueTokens(user, record.FamilyUUID, record.Generation+1)
	if err != nil {
		return nil, util.LogError("[TokenService] ошибка генерации токенов", err)
	}

	if err := s.sessionRepository.Rotate(ctx, record.UUID, newRecord); err != nil {
		if errors.Is(err, security.ErrAlreadyRotated) {
			// проигравший гонку неотличим от вора по одним только данным,
			// поэтому политика одна: отзыв всего семейства
			log.Printf("[TokenService] ротация %s проиграла гонку, отзыв семейства %s", record.UUID, record.FamilyUUID)
			if revokeErr := s.sessionRepository.RevokeFamily(ctx, record.FamilyUUID); revokeErr != nil {
				return nil, revokeErr
			}
			return nil, security.ErrReplayDetected
		}
		return nil, err
	}

	return tokensPair, nil
}

// Revoke завершает сессию: находит семейство предъявленного refresh-токена
// и отзывает его целиком.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return security.ErrInvalidToken
	}

	record, err := s.sessionRepository.FindByUUID(ctx, claims.ID)
	if err != nil {
		return err
	}

	if security.HashToken(refreshToken) != record.TokenHash {
		return security.ErrInvalidToken
	}

	if err := s.sessionRepository.RevokeFamily(ctx, record.FamilyUUID); err != nil {
		return fmt.Errorf("не удалось отозвать семейство: %w", err)
	}

	return nil
}
