package rediscache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/repository"
)

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetail), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.ProductVariant), args.Error(1)
}

func setupCache(t *testing.T) (*ProductCache, *mockProductRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &mockProductRepo{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewProductCache(inner, client, logger, 30*time.Second), inner, mr
}

func sampleDetail() *domain.ProductDetail {
	return &domain.ProductDetail{
		Product: domain.Product{
			ID:          "prod-001",
			SKU:         "VES-001",
			Name:        "Vestido Lino",
			Price:       5000,
			HasVariants: true,
			Status:      domain.ProductStatusActive,
		},
		AvailableColors: []string{"Rojo", "Negro"},
		AvailableSizes:  []string{"M", "L"},
	}
}

func TestProductCache_GetDetail_MissReadsThroughAndPopulates(t *testing.T) {
	cache, inner, mr := setupCache(t)

	inner.On("GetDetail", mock.Anything, "prod-001").Return(sampleDetail(), nil).Once()

	detail, err := cache.GetDetail(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "Vestido Lino", detail.Name)

	assert.True(t, mr.Exists("product:detail:prod-001"))
	inner.AssertExpectations(t)
}

func TestProductCache_GetDetail_HitSkipsSource(t *testing.T) {
	cache, inner, mr := setupCache(t)

	payload, err := json.Marshal(sampleDetail())
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:detail:prod-001", string(payload)))

	detail, err := cache.GetDetail(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rojo", "Negro"}, detail.AvailableColors)

	inner.AssertNotCalled(t, "GetDetail", mock.Anything, mock.Anything)
}

func TestProductCache_GetDetail_CorruptEntryFallsBack(t *testing.T) {
	cache, inner, mr := setupCache(t)

	require.NoError(t, mr.Set("product:detail:prod-001", "{not json"))
	inner.On("GetDetail", mock.Anything, "prod-001").Return(sampleDetail(), nil).Once()

	detail, err := cache.GetDetail(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-001", detail.ID)

	inner.AssertExpectations(t)
}

func TestProductCache_GetDetail_CacheDownDegradesToSource(t *testing.T) {
	cache, inner, mr := setupCache(t)

	mr.Close()
	inner.On("GetDetail", mock.Anything, "prod-001").Return(sampleDetail(), nil).Once()

	detail, err := cache.GetDetail(context.Background(), "prod-001")
	require.NoError(t, err, "cache outage must not surface")
	assert.Equal(t, "prod-001", detail.ID)

	inner.AssertExpectations(t)
}

func TestProductCache_ListVariants_AlwaysPassesThrough(t *testing.T) {
	cache, inner, _ := setupCache(t)

	variants := []domain.ProductVariant{{ID: "var-001", ProductID: "prod-001", Stock: 4, Active: true}}
	inner.On("ListVariants", mock.Anything, "prod-001").Return(variants, nil).Twice()

	for range 2 {
		got, err := cache.ListVariants(context.Background(), "prod-001")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}

	inner.AssertExpectations(t)
}

func TestProductCache_Invalidate(t *testing.T) {
	cache, _, mr := setupCache(t)

	require.NoError(t, mr.Set("product:detail:prod-001", "{}"))
	cache.Invalidate(context.Background(), "prod-001")
	assert.False(t, mr.Exists("product:detail:prod-001"))
}
