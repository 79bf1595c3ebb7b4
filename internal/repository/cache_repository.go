package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/util"

	"github.com/redis/go-redis/v9"
)

// CacheRepository кэширует последний снимок цены по каждому watch,
// чтобы дашборд не ходил в БД на каждое открытие.
type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetSnapshot(ctx context.Context, snapshot *model.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return util.LogError("ошибка сериализации снимка цены", err)
	}

	cmd := r.client.Client.Set(ctx, r.key(snapshot.WatchUUID), data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

func (r *CacheRepository) GetSnapshot(ctx context.Context, watchUUID string) (*model.PriceSnapshot, error) {
	val, err := r.client.Client.Get(ctx, r.key(watchUUID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil // нет в кэше
	} else if err != nil {
		return nil, util.LogError("ошибка получения снимка из Redis", err)
	}

	var snapshot model.PriceSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, util.LogError("ошибка десериализации снимка из кэша", err)
	}
	return &snapshot, nil
}

func (r *CacheRepository) DeleteSnapshot(ctx context.Context, watchUUID string) error {
	if err := r.client.Client.Del(ctx, r.key(watchUUID)).Err(); err != nil {
		return util.LogError("ошибка удаления снимка из Redis", err)
	}
	return nil
}

func (r *CacheRepository) key(watchUUID string) string {
	return fmt.Sprintf("snapshot:%s", watchUUID)
}
