package service_test

import (
	"context"
	"testing"
	"time"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockWatchRepo
type MockWatchRepo struct {
	mock.Mock
}

func (m *MockWatchRepo) Create(ctx context.Context, exec sqlx.ExtContext, watch *model.FlightWatch) error {
	args := m.Called(ctx, exec, watch)
	return args.Error(0)
}

func (m *MockWatchRepo) GetByUUID(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.FlightWatch, error) {
	args := m.Called(ctx, exec, watchUUID)
	if watch, ok := args.Get(0).(*model.FlightWatch); ok {
		return watch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWatchRepo) ListByOwner(ctx context.Context, exec sqlx.ExtContext, ownerUUID string) ([]*model.FlightWatch, error) {
	args := m.Called(ctx, exec, ownerUUID)
	if watches, ok := args.Get(0).([]*model.FlightWatch); ok {
		return watches, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWatchRepo) Delete(ctx context.Context, exec sqlx.ExtContext, watchUUID, ownerUUID string) error {
	args := m.Called(ctx, exec, watchUUID, ownerUUID)
	return args.Error(0)
}

func (m *MockWatchRepo) SaveSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot *model.PriceSnapshot) error {
	args := m.Called(ctx, exec, snapshot)
	return args.Error(0)
}

func (m *MockWatchRepo) LatestSnapshot(ctx context.Context, exec sqlx.ExtContext, watchUUID string) (*model.PriceSnapshot, error) {
	args := m.Called(ctx, exec, watchUUID)
	if snapshot, ok := args.Get(0).(*model.PriceSnapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWatchRepo) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	args := m.Called(ctx)
	exec, _ := args.Get(0).(sqlx.ExtContext)
	rollback, _ := args.Get(1).(func() error)
	commit, _ := args.Get(2).(func() error)
	return exec, rollback, commit, args.Error(3)
}

// MockCacheRepo
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) SetSnapshot(ctx context.Context, snapshot *model.PriceSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockCacheRepo) GetSnapshot(ctx context.Context, watchUUID string) (*model.PriceSnapshot, error) {
	args := m.Called(ctx, watchUUID)
	if snapshot, ok := args.Get(0).(*model.PriceSnapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepo) DeleteSnapshot(ctx context.Context, watchUUID string) error {
	args := m.Called(ctx, watchUUID)
	return args.Error(0)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedGetURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func watchContext(db *config.Database, userUUID string) context.Context {
	ctx := context.WithValue(context.Background(), "db", db)
	claims := &security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userUUID},
	}
	return context.WithValue(ctx, security.UserContextKey, claims)
}

func testWatch(owner string) *model.FlightWatch {
	return &model.FlightWatch{
		UUID:           "watch-uuid-1",
		OwnerUUID:      owner,
		Origin:         "SVO",
		Destination:    "AER",
		DepartDate:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		ThresholdCents: 850000,
		Currency:       "RUB",
	}
}

func TestWatchService_CreateWatch(t *testing.T) {
	db := &config.Database{}
	ctx := watchContext(db, "user-uuid-1")

	watchRepo := new(MockWatchRepo)
	cacheRepo := new(MockCacheRepo)
	storage := new(MockS3Storage)
	users := new(MockUserRepository)

	watch := testWatch("")
	expectedKey := service.HistoryKey(watch.UUID)

	storage.On("GeneratePresignedPutURL", ctx, expectedKey, 15*time.Minute).
		Return("https://s3.example.com/put", nil)
	watchRepo.On("Create", ctx, db, mock.MatchedBy(func(w *model.FlightWatch) bool {
		// владелец берётся из claims, а не из тела запроса
		return w.OwnerUUID == "user-uuid-1"
	})).Return(nil)

	watchService := service.NewWatchService(watchRepo, cacheRepo, storage, users, 15*time.Minute)

	putURL, err := watchService.CreateWatch(ctx, watch)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/put", putURL)
	watchRepo.AssertExpectations(t)
}

func TestWatchService_CreateWatch_Unauthenticated(t *testing.T) {
	db := &config.Database{}
	ctx := context.WithValue(context.Background(), "db", db)

	watchService := service.NewWatchService(
		new(MockWatchRepo), new(MockCacheRepo), new(MockS3Storage), new(MockUserRepository), 15*time.Minute)

	_, err := watchService.CreateWatch(ctx, testWatch(""))
	assert.Error(t, err)
}

func TestWatchService_GetWatchByUUID_CacheHit(t *testing.T) {
	db := &config.Database{}
	ctx := watchContext(db, "user-uuid-1")

	watchRepo := new(MockWatchRepo)
	cacheRepo := new(MockCacheRepo)
	storage := new(MockS3Storage)

	watch := testWatch("user-uuid-1")
	snapshot := &model.PriceSnapshot{
		UUID:        "snap-1",
		WatchUUID:   watch.UUID,
		PriceCents:  790000,
		Currency:    "RUB",
		StoragePath: service.HistoryKey(watch.UUID),
	}

	watchRepo.On("GetByUUID", ctx, db, watch.UUID).Return(watch, nil)
	cacheRepo.On("GetSnapshot", ctx, watch.UUID).Return(snapshot, nil)
	storage.On("GeneratePresignedGetURL", ctx, snapshot.StoragePath, 15*time.Minute).
		Return("https://s3.example.com/get", nil)

	watchService := service.NewWatchService(watchRepo, cacheRepo, storage, new(MockUserRepository), 15*time.Minute)

	result, err := watchService.GetWatchByUUID(ctx, watch.UUID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, result.Latest)
	assert.Equal(t, "https://s3.example.com/get", result.HistoryURL)
	watchRepo.AssertNotCalled(t, "LatestSnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatchService_GetWatchByUUID_CacheMiss(t *testing.T) {
	db := &config.Database{}
	ctx := watchContext(db, "user-uuid-1")

	watchRepo := new(MockWatchRepo)
	cacheRepo := new(MockCacheRepo)
	storage := new(MockS3Storage)

	watch := testWatch("user-uuid-1")
	snapshot := &model.PriceSnapshot{UUID: "snap-1", WatchUUID: watch.UUID, PriceCents: 790000}

	watchRepo.On("GetByUUID", ctx, db, watch.UUID).Return(watch, nil)
	cacheRepo.On("GetSnapshot", ctx, watch.UUID).Return(nil, nil)
	watchRepo.On("LatestSnapshot", ctx, db, watch.UUID).Return(snapshot, nil)
	cacheRepo.On("SetSnapshot", ctx, snapshot).Return(nil)

	watchService := service.NewWatchService(watchRepo, cacheRepo, storage, new(MockUserRepository), 15*time.Minute)

	result, err := watchService.GetWatchByUUID(ctx, watch.UUID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, result.Latest)
	assert.Empty(t, result.HistoryURL)
	cacheRepo.AssertCalled(t, "SetSnapshot", ctx, snapshot)
}

func TestWatchService_GetWatchByUUID_ForeignOwner(t *testing.T) {
	db := &config.Database{}
	ctx := watchContext(db, "intruder-uuid")

	watchRepo := new(MockWatchRepo)
	watch := testWatch("user-uuid-1")
	watchRepo.On("GetByUUID", ctx, db, watch.UUID).Return(watch, nil)

	watchService := service.NewWatchService(
		watchRepo, new(MockCacheRepo), new(MockS3Storage), new(MockUserRepository), 15*time.Minute)

	_, err := watchService.GetWatchByUUID(ctx, watch.UUID)
	assert.Error(t, err)
}

func TestWatchService_DeleteWatch(t *testing.T) {
	db := &config.Database{}
	ctx := watchContext(db, "user-uuid-1")

	watchRepo := new(MockWatchRepo)
	cacheRepo := new(MockCacheRepo)
	storage := new(MockS3Storage)

	watchRepo.On("Delete", ctx, db, "watch-uuid-1", "user-uuid-1").Return(nil)
	cacheRepo.On("DeleteSnapshot", ctx, "watch-uuid-1").Return(nil)
	storage.On("DeleteObject", ctx, service.HistoryKey("watch-uuid-1")).Return(nil)

	watchService := service.NewWatchService(watchRepo, cacheRepo, storage, new(MockUserRepository), 15*time.Minute)

	require.NoError(t, watchService.DeleteWatch(ctx, "watch-uuid-1"))
	cacheRepo.AssertExpectations(t)
	storage.AssertExpectations(t)
}

func TestWatchService_RecordSnapshot(t *testing.T) {
	db := &config.Database{}
	ctx := context.Background()

	watchRepo := new(MockWatchRepo)
	cacheRepo := new(MockCacheRepo)

	watch := testWatch("user-uuid-1")
	snapshot := &model.PriceSnapshot{UUID: "snap-1", WatchUUID: watch.UUID, PriceCents: 790000}

	committed := false
	watchRepo.On("BeginTX", ctx).Return(
		sqlx.ExtContext(db),
		func() error { return nil },
		func() error { committed = true; return nil },
		nil,
	)
	watchRepo.On("GetByUUID", ctx, mock.Anything, watch.UUID).Return(watch, nil)
	watchRepo.On("SaveSnapshot", ctx, mock.Anything, snapshot).Return(nil)
	cacheRepo.On("SetSnapshot", ctx, snapshot).Return(nil)

	watchService := service.NewWatchService(
		watchRepo, cacheRepo, new(MockS3Storage), new(MockUserRepository), 15*time.Minute)

	require.NoError(t, watchService.RecordSnapshot(ctx, snapshot))
	assert.True(t, committed, "транзакция должна быть закоммичена")
	cacheRepo.AssertCalled(t, "SetSnapshot", ctx, snapshot)
}
