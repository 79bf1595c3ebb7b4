package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// TokenType различает access и refresh токены на уровне claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims : полезная нагрузка обоих типов токенов.
// Роли кладутся только в access-токен, family и gen — в оба.
type Claims struct {
	FamilyUUID string    `json:"family,omitempty"`
	Generation int       `json:"gen,omitempty"`
	Roles      []string  `json:"roles,omitempty"`
	TokenType  TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Verifier : проверка токена одного конкретного типа.
// Реализация выбирается конфигурацией (секрет + ожидаемый тип),
// по одной на тип токена.
type Verifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// TypeVerifier проверяет подпись, срок действия и тип токена
// симметричным секретом своего типа.
type TypeVerifier struct {
	secret    []byte
	tokenType TokenType
}

func NewVerifier(secret []byte, tokenType TokenType) *TypeVerifier {
	return &TypeVerifier{secret: secret, tokenType: tokenType}
}

// Verify разбирает и проверяет токен.
// Возвращает ErrMalformed, ErrInvalidSignature или ErrExpired.
// Токен, подписанный чужим секретом, неотличим от подделки и
// даёт ErrInvalidSignature, как и токен другого типа.
func (v *TypeVerifier) Verify(tokenStr string) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	switch {
	case err == nil && jwtToken.Valid:
		// подпись и сроки в порядке, остаётся проверить тип
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	default:
		return nil, ErrMalformed
	}

	if claims.TokenType != v.tokenType {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}

// JWTService выпускает пары токенов и держит по одному Verifier
// на каждый тип. Секреты и TTL приходят из конфигурации через
// конструктор, без глобальных синглтонов.
type JWTService struct {
	*config.JWTConfig
	accessVerifier  *TypeVerifier
	refreshVerifier *TypeVerifier
}

func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{
		JWTConfig:       cfg,
		accessVerifier:  NewVerifier([]byte(cfg.AccessSecretKey), TokenTypeAccess),
		refreshVerifier: NewVerifier([]byte(cfg.RefreshSecretKey), TokenTypeRefresh),
	}
}

// IssueTokens выпускает пару токенов для пользователя: access с ролями и
// refresh, привязанный к семейству familyUUID и поколению generation.
// Возвращает пару и запись refresh-токена для сохранения в БД
// (в записи лежит только хэш токена).
func (service *JWTService) IssueTokens(user *model.User, familyUUID string, generation int) (*model.TokensPair, *model.RefreshToken, error) {
	refreshTTL, err := time.ParseDuration(service.RefreshTokenTTL)
	if err != nil {
		return nil, nil, util.LogError("ошибка парсинга refresh TTL", err)
	}
	accessTTL, err := time.ParseDuration(service.AccessTokenTTL)
	if err != nil {
		return nil, nil, util.LogError("ошибка парсинга access TTL", err)
	}

	now := time.Now().UTC()
	refreshUUID := uuid.New().String()
	refreshExpireAt := now.Add(refreshTTL)

	refreshClaims := Claims{
		FamilyUUID: familyUUID,
		Generation: generation,
		TokenType:  TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			ID:        refreshUUID,
			ExpiresAt: jwt.NewNumericDate(refreshExpireAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "flight-fare-tracker",
		},
	}
	refreshTokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS512, refreshClaims).
		SignedString([]byte(service.RefreshSecretKey))
	if err != nil {
		return nil, nil, util.LogError("ошибка подписи refresh токена", err)
	}

	accessClaims := Claims{
		FamilyUUID: familyUUID,
		Generation: generation,
		Roles:      []string(user.Roles),
		TokenType:  TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "flight-fare-tracker",
		},
	}
	accessTokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS512, accessClaims).
		SignedString([]byte(service.AccessSecretKey))
	if err != nil {
		return nil, nil, util.LogError("ошибка подписи access токена", err)
	}

	// refreshTokenStr отдаётся клиенту только через HttpOnly cookie
	// в БД сохраняется только хэш
	record := &model.RefreshToken{
		UUID:       refreshUUID,
		UserUUID:   user.UUID,
		FamilyUUID: familyUUID,
		Generation: generation,
		TokenHash:  HashToken(refreshTokenStr),
		ExpireAt:   refreshExpireAt,
		Revoked:    false,
	}

	return &model.TokensPair{
		AccessToken:  accessTokenStr,
		RefreshToken: refreshTokenStr,
	}, record, nil
}

// VerifyAccessToken проверяет access-токен.
func (service *JWTService) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return service.accessVerifier.Verify(tokenStr)
}

// VerifyRefreshToken проверяет refresh-токен.
func (service *JWTService) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return service.refreshVerifier.Verify(tokenStr)
}

// AccessVerifier отдаёт Verifier для access-токенов (его использует guard).
func (service *JWTService) AccessVerifier() Verifier {
	return service.accessVerifier
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
