package ports

import (
	"context"

	"flight-fare-tracker/internal/model"
)

type TokenService interface {
	Login(ctx context.Context, email, password string) (*model.TokensPair, error)
	Rotate(ctx context.Context, refreshToken string) (*model.TokensPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}
