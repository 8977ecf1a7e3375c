package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func catalogCfg() *config.Config {
	return &config.Config{
		DB: config.DBConfig{QueryTimeout: time.Second},
		Engine: config.EngineConfig{
			PriceStep:    10,
			MinChangePct: 0.01,
			MaxChangePct: 0.06,
		},
		Catalog: config.CatalogConfig{HistoryLimit: 20, MaxHistoryLimit: 200},
	}
}

// CreateItem validation rejects bad input before the store is touched, so
// these cases run without a database.

func TestCreateItem_RejectsInvertedBounds(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	_, err := svc.CreateItem(context.Background(), "rune sword", 100, 200, 50, decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrInvalidBounds)
}

func TestCreateItem_RejectsPriceOutsideBand(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	for _, price := range []int64{40, 210} {
		_, err := svc.CreateItem(context.Background(), "rune sword", price, 50, 200, decimal.NewFromInt(1))
		require.ErrorIs(t, err, domain.ErrInvalidBounds, "price %d outside [50, 200]", price)
	}
}

func TestCreateItem_RejectsPriceOffGrid(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	_, err := svc.CreateItem(context.Background(), "rune sword", 105, 50, 200, decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrInvalidBounds)
}

func TestCreateItem_RejectsNegativeVolatility(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	_, err := svc.CreateItem(context.Background(), "rune sword", 100, 50, 200, decimal.NewFromFloat(-0.5))
	require.ErrorIs(t, err, domain.ErrInvalidBounds)
}

func TestUpdateBounds_RejectsInvalid(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	err := svc.UpdateBounds(context.Background(), uuid.Nil, 300, 200)
	require.ErrorIs(t, err, domain.ErrInvalidBounds)

	err = svc.UpdateBounds(context.Background(), uuid.Nil, -10, 200)
	require.ErrorIs(t, err, domain.ErrInvalidBounds)
}

func TestUpdateVolatility_RejectsNegative(t *testing.T) {
	svc := service.NewCatalogService(nil, catalogCfg())

	err := svc.UpdateVolatility(context.Background(), uuid.Nil, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, domain.ErrInvalidBounds)
}
