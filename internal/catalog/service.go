// Package catalog provides the implementation of product catalog business logic.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/internal/store"
	"github.com/google/uuid"
)

// CatalogService defines the methods for managing the product catalog.
// It abstracts the underlying business logic and document access.
type CatalogService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// FindAll returns all products in the catalog, sorted by ID.
	// Returns an empty slice if the catalog is empty.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// Create adds a new product to the catalog under a fresh ID.
	// Returns error if the product cannot be persisted.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// UpdateStock replaces the stock level of a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdateStock(ctx context.Context, id string, stock int64) (*ProductDto, error)

	// DeleteByID removes a product from the catalog. Cart lines referencing
	// the product are left in place and rejected at checkout.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// Service implements CatalogService on top of the document store.
type Service struct {
	store  store.DocumentStore
	logger *slog.Logger
}

// NewService creates a new instance of CatalogService with the provided store.
func NewService(docStore store.DocumentStore, logger *slog.Logger) *Service {
	return &Service{
		store:  docStore,
		logger: logger.With("component", "catalog"),
	}
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name     string `json:"name"      validate:"required,max=100"`
	Price    int64  `json:"price"     validate:"min=0"`
	Stock    int64  `json:"stock"     validate:"min=0"`
	MinQty   int64  `json:"min_qty"   validate:"omitempty,min=1"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// ProductDto represents the data transfer object for a catalog product.
type ProductDto struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
	MinQty   int64  `json:"min_qty"`
	ImageURL string `json:"image_url,omitempty"`
}

// StockUpdateDto represents the data transfer object for updating product stock.
type StockUpdateDto struct {
	Stock int64 `json:"stock" validate:"min=0"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	product, ok := doc.Products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, shoperrors.ErrProductNotFound)
	}
	return toDto(id, product), nil
}

// FindAll retrieves every product in the catalog sorted by ID.
// Returns an empty slice if the catalog is empty.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	ids := make([]string, 0, len(doc.Products))
	for id := range doc.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	productDTOs := make([]ProductDto, 0, len(ids))
	for _, id := range ids {
		productDTOs = append(productDTOs, *toDto(id, doc.Products[id]))
	}
	return productDTOs, nil
}

// Create inserts a new product under a freshly generated ID and persists the
// catalog. The ID is an 8-character token derived from a random UUID.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	minQty := product.MinQty
	if minQty <= 0 {
		minQty = 1
	}

	var id string
	record := store.Product{
		Name:     product.Name,
		Price:    product.Price,
		Stock:    product.Stock,
		MinQty:   minQty,
		ImageURL: product.ImageURL,
	}
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		id = newProductID()
		for {
			if _, exists := doc.Products[id]; !exists {
				break
			}
			id = newProductID()
		}
		doc.Products[id] = record
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created", "id", id, "name", record.Name)
	return toDto(id, record), nil
}

// UpdateStock replaces the stock level of a product and persists the catalog.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) UpdateStock(ctx context.Context, id string, stock int64) (*ProductDto, error) {
	var updated store.Product
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		product, ok := doc.Products[id]
		if !ok {
			return fmt.Errorf("product %s: %w", id, shoperrors.ErrProductNotFound)
		}
		product.Stock = stock
		doc.Products[id] = product
		updated = product
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update stock for product %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "product stock updated", "id", id, "stock", stock)
	return toDto(id, updated), nil
}

// DeleteByID removes a product from the catalog and persists it.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		if _, ok := doc.Products[id]; !ok {
			return fmt.Errorf("product %s: %w", id, shoperrors.ErrProductNotFound)
		}
		delete(doc.Products, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "product deleted", "id", id)
	return nil
}

// newProductID returns a short opaque product identifier.
func newProductID() string {
	return uuid.NewString()[:8]
}

// toDto converts a store.Product to a ProductDto.
func toDto(id string, product store.Product) *ProductDto {
	return &ProductDto{
		ID:       id,
		Name:     product.Name,
		Price:    product.Price,
		Stock:    product.Stock,
		MinQty:   product.MinQty,
		ImageURL: product.ImageURL,
	}
}
