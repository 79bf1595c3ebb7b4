package ports

import (
	"context"

	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/security"
)

type SessionRepositoryInterface interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByUUID(ctx context.Context, uuid string) (*model.RefreshToken, error)
	Rotate(ctx context.Context, oldUUID string, newToken *model.RefreshToken) error
	RevokeFamily(ctx context.Context, familyUUID string) error
}

type JWTServiceInterface interface {
	IssueTokens(user *model.User, familyUUID string, generation int) (*model.TokensPair, *model.RefreshToken, error)
	VerifyAccessToken(tokenStr string) (*security.Claims, error)
	VerifyRefreshToken(tokenStr string) (*security.Claims, error)
	AccessVerifier() security.Verifier
}
