package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderCfg() *config.Config {
	return &config.Config{
		DB: config.DBConfig{QueryTimeout: time.Second},
	}
}

// Input validation runs before any transaction is opened, so these paths are
// exercised without a database.

func TestPlaceOrder_RejectsZeroQuantity(t *testing.T) {
	svc := service.NewOrderService(nil, nil, nil, orderCfg())

	_, err := svc.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		BuyerID:     uuid.New(),
		ItemID:      uuid.New(),
		Quantity:    0,
		LockedPrice: 100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestPlaceOrder_RejectsNegativeQuantity(t *testing.T) {
	svc := service.NewOrderService(nil, nil, nil, orderCfg())

	_, err := svc.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		BuyerID:     uuid.New(),
		ItemID:      uuid.New(),
		Quantity:    -3,
		LockedPrice: 100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestPlaceOrder_RejectsNonPositiveLockedPrice(t *testing.T) {
	svc := service.NewOrderService(nil, nil, nil, orderCfg())

	for _, price := range []int64{0, -100} {
		_, err := svc.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
			BuyerID:     uuid.New(),
			ItemID:      uuid.New(),
			Quantity:    1,
			LockedPrice: price,
		})
		require.ErrorIs(t, err, domain.ErrInvalidPrice, "locked_price %d", price)
	}
}

// TestSetOrderStatus_RejectsInvalidTargets: only CANCELLED and FULFILLED are
// admin-reachable; anything else is rejected before touching the store.
func TestSetOrderStatus_RejectsInvalidTargets(t *testing.T) {
	svc := service.NewOrderService(nil, nil, nil, orderCfg())

	for _, status := range []domain.OrderStatus{domain.OrderStatusConfirmed, "PENDING", ""} {
		err := svc.SetOrderStatus(context.Background(), uuid.New(), status)
		require.ErrorIs(t, err, domain.ErrInvalidStatus, "status %q", status)
	}
}

// TestPriceChangedError_CarriesFreshPrice checks the conflict payload the
// storefront uses to re-render after a rejection.
func TestPriceChangedError_CarriesFreshPrice(t *testing.T) {
	var err error = &domain.PriceChangedError{
		ItemID:       uuid.New().String(),
		LockedPrice:  100,
		CurrentPrice: 110,
	}

	pc, ok := domain.IsPriceChanged(err)
	require.True(t, ok)
	assert.Equal(t, int64(100), pc.LockedPrice)
	assert.Equal(t, int64(110), pc.CurrentPrice)
	assert.True(t, domain.IsConflict(err))
	assert.False(t, domain.IsInvalidInput(err))
}
