// Package store provides access to the persisted storefront document.
package store

import "context"

// Product is a catalog record as persisted in the store document.
type Product struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
	MinQty   int64  `json:"min_qty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Cart maps a product ID to the quantity requested by a user.
type Cart map[string]int64

// Document is the single persisted structure holding the whole catalog and
// every user's cart. It is the sole source of truth: every operation loads
// the full document, mutates it in memory and writes it back.
type Document struct {
	Products map[string]Product `json:"products"`
	Carts    map[string]Cart    `json:"carts"`
}

// NewDocument returns an empty document with both top-level maps allocated.
func NewDocument() *Document {
	return &Document{
		Products: make(map[string]Product),
		Carts:    make(map[string]Cart),
	}
}

// DocumentStore is an interface for storefront document persistence.
// It abstracts the underlying backing store, allowing for different
// implementations (e.g., a local file, an in-memory store for tests).
type DocumentStore interface {
	// Load reads the full document from the backing store.
	// A missing backing file yields a freshly persisted empty document.
	// Returns ErrPersistence if the content cannot be read or parsed.
	Load(ctx context.Context) (*Document, error)

	// Save overwrites the backing store with the given document.
	// Returns ErrPersistence if the document cannot be written.
	Save(ctx context.Context, doc *Document) error

	// Mutate runs fn on a freshly loaded document and persists the result,
	// serialized against all other mutations. If fn returns an error the
	// document is not written and the error is returned unchanged.
	Mutate(ctx context.Context, fn func(doc *Document) error) error
}
