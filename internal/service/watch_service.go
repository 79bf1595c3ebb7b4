package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/ports"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/util"
)

type WatchService struct {
	watchRepository  ports.WatchRepository
	cacheRepository  ports.CacheRepository
	storageInterface ports.S3Storage
	userRepository   ports.UserRepository
	ttl              time.Duration
}

func NewWatchService(
	watchRepository ports.WatchRepository,
	cacheRepository ports.CacheRepository,
	storageInterface ports.S3Storage,
	userRepository ports.UserRepository,
	ttl time.Duration,
) *WatchService {
	return &WatchService{
		watchRepository:  watchRepository,
		cacheRepository:  cacheRepository,
		storageInterface: storageInterface,
		userRepository:   userRepository,
		ttl:              ttl,
	}
}

// CreateWatch : создаёт watch и возвращает pre-signed PUT URL,
// по которому сборщик выгружает историю цен в хранилище
func (s *WatchService) CreateWatch(ctx context.Context, watch *model.FlightWatch) (string, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if ok == false {
		return "", fmt.Errorf("[WatchService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("[WatchService] пользователь не авторизован")
	}
	watch.OwnerUUID = claims.Subject

	putURL, err := s.storageInterface.GeneratePresignedPutURL(ctx, HistoryKey(watch.UUID), s.ttl)
	if err != nil {
		return "", util.LogError("[WatchService] не удалось сгенерировать URL", err)
	}

	if err := s.watchRepository.Create(ctx, db, watch); err != nil {
		return "", util.LogError("[WatchService] не удалось сохранить watch в БД", err)
	}

	log.Printf("[WatchService] watch %s -> %s успешно создан", watch.Origin, watch.Destination)

	return putURL, nil
}

// GetWatchByUUID : возвращает watch с последним снимком цены.
// Снимок сначала ищется в кэше, затем в БД; из БД кладётся в кэш.
func (s *WatchService) GetWatchByUUID(ctx context.Context, watchUUID string) (*model.GetWatchResult, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[WatchService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil || claims == nil {
		return nil, fmt.Errorf("[WatchService] пользователь не авторизован")
	}

	watch, err := s.watchRepository.GetByUUID(ctx, db, watchUUID)
	if err != nil {
		return nil, util.LogError("[WatchService] watch не найден", err)
	}
	if watch.OwnerUUID != claims.Subject {
		return nil, fmt.Errorf("[WatchService] доступ запрещён")
	}

	snapshot, err := s.cacheRepository.GetSnapshot(ctx, watchUUID)
	if err != nil {
		log.Printf("[WatchService] ошибка кэширования: %v", err)
	}

	if snapshot == nil {
		snapshot, err = s.watchRepository.LatestSnapshot(ctx, db, watchUUID)
		if err != nil {
			return nil, util.LogError("[WatchService] не удалось получить снимок цены", err)
		}

		if snapshot != nil {
			if err := s.cacheRepository.SetSnapshot(ctx, snapshot); err != nil {
				log.Printf("[WatchService] ошибка кэширования снимка: %v", err)
			}
			log.Printf("[WatchService] снимок для watch %s взят из БД и кэширован в Redis", watchUUID)
		}
	} else {
		log.Printf("[WatchService] снимок для watch %s взят из кэша Redis", watchUUID)
	}

	var historyURL string
	if snapshot != nil && snapshot.StoragePath != "" {
		historyURL, err = s.storageInterface.GeneratePresignedGetURL(ctx, snapshot.StoragePath, s.ttl)
		if err != nil {
			return nil, util.LogError("[WatchService] не удалось сгенерировать pre-signed GET URL", err)
		}
	}

	return &model.GetWatchResult{
		Watch:      watch,
		Latest:     snapshot,
		HistoryURL: historyURL,
	}, nil
}

// ListWatches : все watch текущего пользователя
func (s *WatchService) ListWatches(ctx context.Context) ([]*model.FlightWatch, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[WatchService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("[WatchService] пользователь не авторизован")
	}

	return s.watchRepository.ListByOwner(ctx, db, claims.Subject)
}

// DeleteWatch : удаляет watch владельца вместе с кэшем и архивом истории
func (s *WatchService) DeleteWatch(ctx context.Context, watchUUID string) error {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return fmt.Errorf("[WatchService] database connection не найден в context")
	}

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil {
		return fmt.Errorf("[WatchService] пользователь не авторизован")
	}

	if err := s.watchRepository.Delete(ctx, db, watchUUID, claims.Subject); err != nil {
		return err
	}

	if err := s.cacheRepository.DeleteSnapshot(ctx, watchUUID); err != nil {
		log.Printf("[WatchService] не удалось удалить снимок из кэша: %v", err)
	}
	if err := s.storageInterface.DeleteObject(ctx, HistoryKey(watchUUID)); err != nil {
		log.Printf("[WatchService] не удалось удалить архив истории: %v", err)
	}

	return nil
}

// RecordSnapshot : сохраняет свежий снимок цены и обновляет кэш.
// Сохранение в БД и чтение последнего снимка идут в одной транзакции.
func (s *WatchService) RecordSnapshot(ctx context.Context, snapshot *model.PriceSnapshot) error {
	exec, rollback, commit, err := s.watchRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[WatchService] не удалось начать транзакцию", err)
	}
	defer rollback()

	if _, err := s.watchRepository.GetByUUID(ctx, exec, snapshot.WatchUUID); err != nil {
		return util.LogError("[WatchService] watch не найден", err)
	}

	if err := s.watchRepository.SaveSnapshot(ctx, exec, snapshot); err != nil {
		return util.LogError("[WatchService] не удалось сохранить снимок", err)
	}

	if err := commit(); err != nil {
		return util.LogError("[WatchService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.SetSnapshot(ctx, snapshot); err != nil {
		log.Printf("[WatchService] ошибка кэширования снимка: %v", err)
	}

	return nil
}
