package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, store.DocumentStore) {
	t.Helper()
	docStore := store.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	return NewService(docStore, slog.Default()), docStore
}

func Test_CatalogService_Create(t *testing.T) {
	testCases := []struct {
		name     string
		dto      ProductCreateDto
		expected ProductDto
	}{
		{
			name: "Success - full product",
			dto:  ProductCreateDto{Name: "Hoodie", Price: 250, Stock: 10, MinQty: 2, ImageURL: "https://example.com/h.png"},
			expected: ProductDto{
				Name: "Hoodie", Price: 250, Stock: 10, MinQty: 2, ImageURL: "https://example.com/h.png",
			},
		},
		{
			name:     "Success - min quantity defaults to 1",
			dto:      ProductCreateDto{Name: "Sticker", Price: 5, Stock: 100},
			expected: ProductDto{Name: "Sticker", Price: 5, Stock: 100, MinQty: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service, _ := newTestService(t)
			// when
			created, err := service.Create(context.Background(), tc.dto)
			// then
			require.NoError(t, err)
			assert.Len(t, created.ID, 8)
			tc.expected.ID = created.ID
			assert.Equal(t, &tc.expected, created)

			found, err := service.FindByID(context.Background(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, found)
		})
	}
}

func Test_CatalogService_FindByID_NotFound(t *testing.T) {
	// given
	service, _ := newTestService(t)
	// when
	found, err := service.FindByID(context.Background(), "deadbeef")
	// then
	assert.Nil(t, found)
	assert.ErrorIs(t, err, shoperrors.ErrProductNotFound)
}

func Test_CatalogService_FindAll(t *testing.T) {
	// given
	service, _ := newTestService(t)
	empty, err := service.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := service.Create(context.Background(), ProductCreateDto{Name: "Mug", Price: 30, Stock: 5, MinQty: 1})
	require.NoError(t, err)
	second, err := service.Create(context.Background(), ProductCreateDto{Name: "Cap", Price: 45, Stock: 8, MinQty: 1})
	require.NoError(t, err)
	// when
	list, err := service.FindAll(context.Background())
	// then
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})
	// sorted by ID
	assert.Less(t, list[0].ID, list[1].ID)
}

func Test_CatalogService_UpdateStock(t *testing.T) {
	// given
	service, _ := newTestService(t)
	created, err := service.Create(context.Background(), ProductCreateDto{Name: "Mug", Price: 30, Stock: 5, MinQty: 1})
	require.NoError(t, err)

	testCases := []struct {
		name        string
		id          string
		stock       int64
		expectError error
	}{
		{name: "Success - stock replaced", id: created.ID, stock: 42},
		{name: "Error - product not found", id: "deadbeef", stock: 42, expectError: shoperrors.ErrProductNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			updated, err := service.UpdateStock(context.Background(), tc.id, tc.stock)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.stock, updated.Stock)
		})
	}
}

func Test_CatalogService_DeleteByID(t *testing.T) {
	// given
	service, _ := newTestService(t)
	created, err := service.Create(context.Background(), ProductCreateDto{Name: "Mug", Price: 30, Stock: 5, MinQty: 1})
	require.NoError(t, err)
	// when
	require.NoError(t, service.DeleteByID(context.Background(), created.ID))
	// then
	found, err := service.FindByID(context.Background(), created.ID)
	assert.Nil(t, found)
	assert.ErrorIs(t, err, shoperrors.ErrProductNotFound)

	// deleting again reports not found
	assert.ErrorIs(t, service.DeleteByID(context.Background(), created.ID), shoperrors.ErrProductNotFound)
}

func Test_CatalogService_DeleteByID_LeavesCartsAlone(t *testing.T) {
	// given: a cart references the product
	service, docStore := newTestService(t)
	created, err := service.Create(context.Background(), ProductCreateDto{Name: "Mug", Price: 30, Stock: 5, MinQty: 1})
	require.NoError(t, err)
	require.NoError(t, docStore.Mutate(context.Background(), func(doc *store.Document) error {
		doc.Carts["user-1"] = store.Cart{created.ID: 2}
		return nil
	}))
	// when
	require.NoError(t, service.DeleteByID(context.Background(), created.ID))
	// then: the stale line stays until checkout rejects it
	doc, err := docStore.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Carts["user-1"][created.ID])
}
