package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"
	"configurator/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newOrder(id, userID string, offset time.Duration) *models.Order {
	return &models.Order{
		ID:            id,
		UserID:        userID,
		Model:         "jesko",
		Color:         "carbon",
		Interior:      "black-leather",
		Price:         "$3,050,000",
		PaymentMethod: models.PaymentMethodMock,
		Status:        models.StatusProcessing,
		CreatedAt:     baseTime.Add(offset),
	}
}

func orderIDs(orders []models.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

type gatewayFixture struct {
	remote  *repositories.MockOrderRepository
	kv      *repositories.MemoryKeyValueStore
	local   *repositories.LocalOrderStore
	gateway *services.OrderGateway
}

func newGatewayFixture() *gatewayFixture {
	remote := repositories.NewMockOrderRepository()
	kv := repositories.NewMemoryKeyValueStore()
	local := repositories.NewLocalOrderStore(kv)
	return &gatewayFixture{
		remote:  remote,
		kv:      kv,
		local:   local,
		gateway: services.NewOrderGateway(remote, local, nil),
	}
}

func TestOrderGateway_CreateOrderRemote(t *testing.T) {
	f := newGatewayFixture()
	ctx := context.Background()

	store, err := f.gateway.CreateOrder(ctx, newOrder("o1", "u1", 0))
	require.NoError(t, err)
	assert.Equal(t, models.StoreRemote, store)

	local, err := f.local.List(models.AllOrders())
	require.NoError(t, err)
	assert.Empty(t, local, "a remote write never touches the local list")

	orders, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, orderIDs(orders))
}

func TestOrderGateway_CreateOrderFallsBackToLocal(t *testing.T) {
	f := newGatewayFixture()
	ctx := context.Background()
	f.remote.SetOffline(true)

	require.NoError(t, f.local.Prepend(*newOrder("older", "u1", -time.Hour)))

	store, err := f.gateway.CreateOrder(ctx, newOrder("o1", "u1", 0))
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocal, store)

	local, err := f.local.List(models.AllOrders())
	require.NoError(t, err)
	require.Len(t, local, 2)
	assert.Equal(t, "o1", local[0].ID, "fallback orders are prepended")

	orders, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "older"}, orderIDs(orders))

	// Remote comes back: the local order is still visible next to remote ones.
	f.remote.SetOffline(false)
	_, err = f.gateway.CreateOrder(ctx, newOrder("o2", "u1", time.Minute))
	require.NoError(t, err)
	orders, err = f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o1", "older"}, orderIDs(orders))
}

func TestOrderGateway_RejectedWriteFallsBack(t *testing.T) {
	remote := new(MockOrderRepository)
	local := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())
	gateway := services.NewOrderGateway(remote, local, nil)

	remote.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).
		Return(fmt.Errorf("%w: column \"card_type\" does not exist", repositories.ErrRemoteRejected)).Once()

	store, err := gateway.CreateOrder(context.Background(), newOrder("o1", "u1", 0))
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocal, store)
	remote.AssertNumberOfCalls(t, "Create", 1)
}

func TestOrderGateway_CreateOrderBothStoresFail(t *testing.T) {
	f := newGatewayFixture()
	f.remote.SetOffline(true)
	f.kv.SetFailure(errors.New("quota exceeded"))

	_, err := f.gateway.CreateOrder(context.Background(), newOrder("o1", "u1", 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrRemoteUnavailable)
	assert.ErrorIs(t, err, services.ErrLocalStorageUnavailable)
}

func TestOrderGateway_ListOrdersIsIdempotent(t *testing.T) {
	f := newGatewayFixture()
	ctx := context.Background()
	for i, id := range []string{"b", "a", "c"} {
		_, err := f.gateway.CreateOrder(ctx, newOrder(id, "u1", time.Duration(i%2)*time.Minute))
		require.NoError(t, err)
	}

	first, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	second, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// "a" is newest; "b" and "c" tie on created_at and sort by ID.
	assert.Equal(t, []string{"a", "b", "c"}, orderIDs(first))
}

func TestOrderGateway_ListOrdersScopesByUser(t *testing.T) {
	f := newGatewayFixture()
	ctx := context.Background()
	_, _ = f.gateway.CreateOrder(ctx, newOrder("mine", "u1", 0))
	_, _ = f.gateway.CreateOrder(ctx, newOrder("theirs", "u2", time.Minute))
	f.remote.SetOffline(true)
	_, _ = f.gateway.CreateOrder(ctx, newOrder("theirs-local", "u2", 2*time.Minute))
	f.remote.SetOffline(false)

	mine, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, orderIDs(mine))

	all, err := f.gateway.ListOrders(ctx, models.AllOrders())
	require.NoError(t, err)
	assert.Equal(t, []string{"theirs-local", "theirs", "mine"}, orderIDs(all))
}

func TestOrderGateway_ListOrdersNeverFails(t *testing.T) {
	f := newGatewayFixture()
	f.remote.SetOffline(true)
	f.kv.SetFailure(errors.New("disk gone"))

	orders, err := f.gateway.ListOrders(context.Background(), models.AllOrders())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderGateway_ConcurrentFallbackCreates(t *testing.T) {
	f := newGatewayFixture()
	f.remote.SetOffline(true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i, id := range []string{"first", "second"} {
		wg.Add(1)
		go func(id string, offset time.Duration) {
			defer wg.Done()
			store, err := f.gateway.CreateOrder(ctx, newOrder(id, "u1", offset))
			assert.NoError(t, err)
			assert.Equal(t, models.StoreLocal, store)
		}(id, time.Duration(i)*time.Minute)
	}
	wg.Wait()

	orders, err := f.gateway.ListOrders(ctx, models.UserOrders("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, orderIDs(orders))
}

func TestOrderGateway_UpdateStatus(t *testing.T) {
	f := newGatewayFixture()
	ctx := context.Background()
	_, err := f.gateway.CreateOrder(ctx, newOrder("remote-1", "u1", 0))
	require.NoError(t, err)
	require.NoError(t, f.local.Prepend(*newOrder("local-1", "u1", time.Minute)))

	store, err := f.gateway.UpdateStatus(ctx, "remote-1", models.StatusShipping)
	require.NoError(t, err)
	assert.Equal(t, models.StoreRemote, store)

	store, err = f.gateway.UpdateStatus(ctx, "local-1", models.StatusManufacturing)
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocal, store)

	o, err := f.gateway.GetOrder(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusManufacturing, o.Status)

	_, err = f.gateway.UpdateStatus(ctx, "missing", models.StatusDelivered)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestOrderGateway_RemoteTimeout(t *testing.T) {
	remote := new(MockOrderRepository)
	local := repositories.NewLocalOrderStore(repositories.NewMemoryKeyValueStore())
	gateway := services.NewOrderGateway(remote, local, nil)
	gateway.SetRemoteTimeout(20 * time.Millisecond)

	remote.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(repositories.ErrRemoteUnavailable).Once()

	store, err := gateway.CreateOrder(context.Background(), newOrder("slow", "u1", 0))
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocal, store)
}

func withStatus(o *models.Order, s models.OrderStatus) models.Order {
	o.Status = s
	return *o
}
