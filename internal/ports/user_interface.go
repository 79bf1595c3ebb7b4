package ports

import (
	"context"

	"flight-fare-tracker/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Exists(ctx context.Context, uuid string) (bool, error)
}

type UserService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
}
