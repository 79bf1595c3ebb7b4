package ports

import (
	"context"

	"flight-fare-tracker/internal/model"

	"github.com/jmoiron/sqlx"
)

type WatchRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, watch *model.FlightWatch) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.FlightWatch, error)
	ListByOwner(ctx context.Context, exec sqlx.ExtContext, ownerUUID string) ([]*model.FlightWatch, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, watchUUID, ownerUUID string) error
	SaveSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot *model.PriceSnapshot) error
	LatestSnapshot(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.PriceSnapshot, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

type WatchService interface {
	CreateWatch(ctx context.Context, watch *model.FlightWatch) (string, error)
	GetWatchByUUID(ctx context.Context, watchUUID string) (*model.GetWatchResult, error)
	ListWatches(ctx context.Context) ([]*model.FlightWatch, error)
	DeleteWatch(ctx context.Context, watchUUID string) error
	RecordSnapshot(ctx context.Context, snapshot *model.PriceSnapshot) error
}
