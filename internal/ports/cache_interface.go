package ports

import (
	"context"

	"flight-fare-tracker/internal/model"
)

type CacheRepository interface {
	SetSnapshot(ctx context.Context, snapshot *model.PriceSnapshot) error
	GetSnapshot(ctx context.Context, watchUUID string) (*model.PriceSnapshot, error)
	DeleteSnapshot(ctx context.Context, watchUUID string) error
}
