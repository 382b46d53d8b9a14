package checkout

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/internal/store"
	"github.com/abgdnv/shopbot/pkg/messaging"
	"github.com/abgdnv/shopbot/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "user-1"

// mockPublisher is a mock implementation of the messaging.Publisher interface
type mockPublisher struct {
	published []messaging.Event
	error     error
}

func (m *mockPublisher) Publish(_ context.Context, event messaging.Event) error {
	if m.error != nil {
		return m.error
	}
	m.published = append(m.published, event)
	return nil
}

func newTestService(t *testing.T, publisher messaging.Publisher) (*Service, store.DocumentStore) {
	t.Helper()
	docStore := store.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	return NewService(docStore, publisher, slog.Default()), docStore
}

func seed(t *testing.T, docStore store.DocumentStore, products map[string]store.Product, cart store.Cart) {
	t.Helper()
	require.NoError(t, docStore.Mutate(context.Background(), func(doc *store.Document) error {
		for id, product := range products {
			doc.Products[id] = product
		}
		if cart != nil {
			doc.Carts[userID] = cart
		}
		return nil
	}))
}

func Test_CheckoutService_Success(t *testing.T) {
	// given: stock=10, min_qty=2, 3 in the cart
	publisher := &mockPublisher{}
	service, docStore := newTestService(t, publisher)
	seed(t, docStore,
		map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 10, MinQty: 2}},
		store.Cart{"ab12cd34": 3},
	)
	// when
	order, err := service.Checkout(context.Background(), userID)
	// then
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, userID, order.UserID)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(3), order.Lines[0].Quantity)
	assert.Equal(t, int64(750), order.Lines[0].Subtotal)
	assert.Equal(t, int64(750), order.Total)

	doc, err := docStore.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.Products["ab12cd34"].Stock)
	assert.NotContains(t, doc.Carts, userID)

	require.Len(t, publisher.published, 1)
	event, ok := publisher.published[0].(events.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, int64(750), event.TotalPrice)
}

func Test_CheckoutService_Rejections(t *testing.T) {
	testCases := []struct {
		name        string
		products    map[string]store.Product
		cart        store.Cart
		expectError error
	}{
		{
			name:        "Error - empty cart",
			products:    map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 10, MinQty: 1}},
			cart:        nil,
			expectError: shoperrors.ErrEmptyCart,
		},
		{
			name:        "Error - below minimum quantity",
			products:    map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 10, MinQty: 2}},
			cart:        store.Cart{"ab12cd34": 1},
			expectError: shoperrors.ErrBelowMinimum,
		},
		{
			name:        "Error - insufficient stock",
			products:    map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 3, MinQty: 1}},
			cart:        store.Cart{"ab12cd34": 5},
			expectError: shoperrors.ErrInsufficientStock,
		},
		{
			name:        "Error - product removed after add",
			products:    map[string]store.Product{},
			cart:        store.Cart{"ab12cd34": 2},
			expectError: shoperrors.ErrProductNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			publisher := &mockPublisher{}
			service, docStore := newTestService(t, publisher)
			seed(t, docStore, tc.products, tc.cart)
			before, err := docStore.Load(context.Background())
			require.NoError(t, err)
			// when
			order, err := service.Checkout(context.Background(), userID)
			// then
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tc.expectError)
			assert.Empty(t, publisher.published)

			// no mutation at all: stock and cart are untouched
			after, loadErr := docStore.Load(context.Background())
			require.NoError(t, loadErr)
			assert.Equal(t, before, after)
		})
	}
}

func Test_CheckoutService_AllOrNothing(t *testing.T) {
	// given: one valid line and one line over stock
	publisher := &mockPublisher{}
	service, docStore := newTestService(t, publisher)
	seed(t, docStore,
		map[string]store.Product{
			"aa11aa11": {Name: "Cap", Price: 45, Stock: 8, MinQty: 1},
			"bb22bb22": {Name: "Mug", Price: 30, Stock: 1, MinQty: 1},
		},
		store.Cart{"aa11aa11": 2, "bb22bb22": 5},
	)
	// when
	order, err := service.Checkout(context.Background(), userID)
	// then: the valid line is not committed either
	assert.Nil(t, order)
	assert.ErrorIs(t, err, shoperrors.ErrInsufficientStock)

	doc, loadErr := docStore.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, int64(8), doc.Products["aa11aa11"].Stock)
	assert.Equal(t, int64(1), doc.Products["bb22bb22"].Stock)
	assert.Equal(t, int64(2), doc.Carts[userID]["aa11aa11"])
}

func Test_CheckoutService_ReplayYieldsEmptyCart(t *testing.T) {
	// given: a completed checkout
	publisher := &mockPublisher{}
	service, docStore := newTestService(t, publisher)
	seed(t, docStore,
		map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 10, MinQty: 1}},
		store.Cart{"ab12cd34": 3},
	)
	_, err := service.Checkout(context.Background(), userID)
	require.NoError(t, err)
	// when: checkout is replayed
	order, err := service.Checkout(context.Background(), userID)
	// then: no duplicate decrement
	assert.Nil(t, order)
	assert.ErrorIs(t, err, shoperrors.ErrEmptyCart)

	doc, loadErr := docStore.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, int64(7), doc.Products["ab12cd34"].Stock)
}

func Test_CheckoutService_ConcurrentLastUnit(t *testing.T) {
	// given: one unit left and two buyers holding it in their carts
	publisher := &mockPublisher{}
	service, docStore := newTestService(t, publisher)
	require.NoError(t, docStore.Mutate(context.Background(), func(doc *store.Document) error {
		doc.Products["ab12cd34"] = store.Product{Name: "Hoodie", Price: 250, Stock: 1, MinQty: 1}
		doc.Carts["user-1"] = store.Cart{"ab12cd34": 1}
		doc.Carts["user-2"] = store.Cart{"ab12cd34": 1}
		return nil
	}))

	// when: both check out at the same time
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, buyer := range []string{"user-1", "user-2"} {
		wg.Add(1)
		go func(buyer string) {
			defer wg.Done()
			_, err := service.Checkout(context.Background(), buyer)
			results <- err
		}(buyer)
	}
	wg.Wait()
	close(results)

	// then: exactly one order is created and the loser is rejected, never oversold
	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, shoperrors.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	doc, loadErr := docStore.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, int64(0), doc.Products["ab12cd34"].Stock)
	assert.Len(t, publisher.published, 1)
}

func Test_CheckoutService_PublishFailureDoesNotUndoCheckout(t *testing.T) {
	// given
	publisher := &mockPublisher{error: errors.New("nats unavailable")}
	service, docStore := newTestService(t, publisher)
	seed(t, docStore,
		map[string]store.Product{"ab12cd34": {Name: "Hoodie", Price: 250, Stock: 10, MinQty: 1}},
		store.Cart{"ab12cd34": 2},
	)
	// when
	order, err := service.Checkout(context.Background(), userID)
	// then: the committed checkout is returned despite the publish failure
	require.NoError(t, err)
	assert.Equal(t, int64(500), order.Total)

	doc, loadErr := docStore.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, int64(8), doc.Products["ab12cd34"].Stock)
	assert.NotContains(t, doc.Carts, userID)
}
