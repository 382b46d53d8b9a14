package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	storeerrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	return NewFileStore(path), path
}

func Test_FileStore_Load_CreatesDefaultDocument(t *testing.T) {
	// given
	fileStore, path := newTestStore(t)
	// when
	doc, err := fileStore.Load(context.Background())
	// then
	require.NoError(t, err)
	assert.Empty(t, doc.Products)
	assert.Empty(t, doc.Carts)
	// the default document is persisted on first use
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func Test_FileStore_SaveLoad_RoundTrip(t *testing.T) {
	// given
	fileStore, _ := newTestStore(t)
	doc := NewDocument()
	doc.Products["ab12cd34"] = Product{Name: "Hoodie", Price: 250, Stock: 10, MinQty: 2, ImageURL: "https://example.com/h.png"}
	doc.Carts["user-1"] = Cart{"ab12cd34": 3}
	// when
	require.NoError(t, fileStore.Save(context.Background(), doc))
	loaded, err := fileStore.Load(context.Background())
	// then
	require.NoError(t, err)
	assert.Equal(t, doc.Products, loaded.Products)
	assert.Equal(t, doc.Carts, loaded.Carts)

	// writing back an unmodified document is a fixed point
	require.NoError(t, fileStore.Save(context.Background(), loaded))
	again, err := fileStore.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loaded, again)
}

func Test_FileStore_Load_MalformedFile(t *testing.T) {
	// given
	fileStore, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	// when
	doc, err := fileStore.Load(context.Background())
	// then
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, storeerrors.ErrPersistence)
}

func Test_FileStore_Load_MissingTopLevelMaps(t *testing.T) {
	// given: a forward-readable document written by an older version
	fileStore, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"products": null}`), 0o644))
	// when
	doc, err := fileStore.Load(context.Background())
	// then
	require.NoError(t, err)
	assert.NotNil(t, doc.Products)
	assert.NotNil(t, doc.Carts)
}

func Test_FileStore_Mutate_PersistsResult(t *testing.T) {
	// given
	fileStore, _ := newTestStore(t)
	// when
	err := fileStore.Mutate(context.Background(), func(doc *Document) error {
		doc.Products["ab12cd34"] = Product{Name: "Sticker", Price: 5, Stock: 100, MinQty: 1}
		return nil
	})
	// then
	require.NoError(t, err)
	loaded, err := fileStore.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, loaded.Products, "ab12cd34")
}

func Test_FileStore_Mutate_RejectionWritesNothing(t *testing.T) {
	// given
	fileStore, _ := newTestStore(t)
	require.NoError(t, fileStore.Mutate(context.Background(), func(doc *Document) error {
		doc.Products["ab12cd34"] = Product{Name: "Mug", Price: 30, Stock: 5, MinQty: 1}
		return nil
	}))
	rejection := errors.New("validation failed")
	// when
	err := fileStore.Mutate(context.Background(), func(doc *Document) error {
		doc.Products["ab12cd34"] = Product{Name: "Mug", Price: 30, Stock: 0, MinQty: 1}
		return rejection
	})
	// then
	assert.ErrorIs(t, err, rejection)
	loaded, loadErr := fileStore.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Equal(t, int64(5), loaded.Products["ab12cd34"].Stock)
}

func Test_FileStore_Save_LeavesNoTempFiles(t *testing.T) {
	// given
	fileStore, path := newTestStore(t)
	// when
	require.NoError(t, fileStore.Save(context.Background(), NewDocument()))
	// then
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func Test_FileStore_Mutate_SerializesConcurrentWriters(t *testing.T) {
	// given
	fileStore, _ := newTestStore(t)
	require.NoError(t, fileStore.Mutate(context.Background(), func(doc *Document) error {
		doc.Products["ab12cd34"] = Product{Name: "Hoodie", Price: 250, Stock: 0, MinQty: 1}
		return nil
	}))

	// when: many writers increment the same counter through Mutate
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fileStore.Mutate(context.Background(), func(doc *Document) error {
				product := doc.Products["ab12cd34"]
				product.Stock++
				doc.Products["ab12cd34"] = product
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// then: no increment was lost to a stale read
	doc, err := fileStore.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(writers), doc.Products["ab12cd34"].Stock)
}
