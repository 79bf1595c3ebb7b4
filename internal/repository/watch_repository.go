package repository

import (
	"context"
	"database/sql"
	"errors"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/util"

	"github.com/jmoiron/sqlx"
)

type WatchRepository struct {
	*config.Database
}

func NewWatchRepository(database *config.Database) *WatchRepository {
	return &WatchRepository{database}
}

// Create : сохраняет новый watch
func (r *WatchRepository) Create(ctx context.Context, exec sqlx.ExtContext, watch *model.FlightWatch) error {
	query := `
		INSERT INTO flight_watches (uuid, owner_uuid, origin, destination, depart_date, threshold_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		watch.UUID,
		watch.OwnerUUID,
		watch.Origin,
		watch.Destination,
		watch.DepartDate,
		watch.ThresholdCents,
		watch.Currency)

	return err
}

// GetByUUID : ищет watch по UUID
func (r *WatchRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.FlightWatch, error) {
	query := `SELECT uuid, owner_uuid, origin, destination, depart_date, threshold_cents, currency, created_at
				FROM flight_watches WHERE uuid = $1`
	var watch model.FlightWatch
	err := sqlx.GetContext(ctx, exec, &watch, query, watchUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.LogError("[WatchRepo] watch не найден", err)
		}
		return nil, util.LogError("[WatchRepo] ошибка при выполнении запроса", err)
	}
	return &watch, nil
}

// ListByOwner : все watch пользователя
func (r *WatchRepository) ListByOwner(ctx context.Context, exec sqlx.ExtContext, ownerUUID string) ([]*model.FlightWatch, error) {
	query := `SELECT uuid, owner_uuid, origin, destination, depart_date, threshold_cents, currency, created_at
				FROM flight_watches WHERE owner_uuid = $1 ORDER BY created_at DESC`
	var watches []*model.FlightWatch
	if err := sqlx.SelectContext(ctx, exec, &watches, query, ownerUUID); err != nil {
		return nil, util.LogError("[WatchRepo] не удалось получить список watch", err)
	}
	return watches, nil
}

// Delete : удаляет watch вместе со снимками (каскадом по FK)
func (r *WatchRepository) Delete(ctx context.Context, exec sqlx.ExtContext, watchUUID, ownerUUID string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM flight_watches WHERE uuid = $1 AND owner_uuid = $2`, watchUUID, ownerUUID)
	if err != nil {
		return util.LogError("[WatchRepo] не удалось удалить watch", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[WatchRepo] не удалось проверить, удалён ли watch", err)
	}
	if rowsAffected == 0 {
		return util.LogError("[WatchRepo] watch не найден или принадлежит другому пользователю", sql.ErrNoRows)
	}

	return nil
}

// SaveSnapshot : сохраняет снимок цены
func (r *WatchRepository) SaveSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot *model.PriceSnapshot) error {
	query := `
		INSERT INTO price_snapshots (uuid, watch_uuid, price_cents, currency, carrier, collected_at, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		snapshot.UUID,
		snapshot.WatchUUID,
		snapshot.PriceCents,
		snapshot.Currency,
		snapshot.Carrier,
		snapshot.CollectedAt,
		snapshot.StoragePath)

	if err != nil {
		return util.LogError("[WatchRepo] не удалось сохранить снимок цены", err)
	}
	return nil
}

// LatestSnapshot : последний по времени снимок цены для watch
func (r *WatchRepository) LatestSnapshot(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.PriceSnapshot, error) {
	query := `SELECT uuid, watch_uuid, price_cents, currency, carrier, collected_at, storage_path
				FROM price_snapshots WHERE watch_uuid = $1 ORDER BY collected_at DESC LIMIT 1`
	var snapshot model.PriceSnapshot
	err := sqlx.GetContext(ctx, exec, &snapshot, query, watchUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // цен ещё не собирали
		}
		return nil, util.LogError("[WatchRepo] не удалось получить снимок цены", err)
	}
	return &snapshot, nil
}

func (r *WatchRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}
