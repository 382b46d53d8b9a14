// Package cart provides the implementation of per-user cart business logic.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/internal/store"
)

// CartService defines the methods for managing per-user carts.
type CartService interface {
	// Get returns the user's cart priced against the current catalog.
	// A user without a cart gets an empty cart, never an error.
	Get(ctx context.Context, userID string) (*CartDto, error)

	// Add increments the quantity of a product in the user's cart, creating
	// the cart and the line as needed, and persists the document.
	// Returns ErrProductNotFound if the product is not in the catalog and
	// ErrOutOfStock if its stock is zero. Rejected calls leave the cart
	// untouched. Stock is re-checked authoritatively at checkout.
	Add(ctx context.Context, userID, productID string, qty int64) (*CartDto, error)

	// Remove decrements the quantity of a product in the user's cart,
	// deleting the line once it reaches zero.
	// Returns ErrCartLineNotFound if the user has no such line.
	Remove(ctx context.Context, userID, productID string, qty int64) (*CartDto, error)

	// Clear deletes the user's cart entirely. Clearing an absent cart is a no-op.
	Clear(ctx context.Context, userID string) error
}

// Service implements CartService on top of the document store.
type Service struct {
	store  store.DocumentStore
	logger *slog.Logger
}

// NewService creates a new instance of CartService with the provided store.
func NewService(docStore store.DocumentStore, logger *slog.Logger) *Service {
	return &Service{
		store:  docStore,
		logger: logger.With("component", "cart"),
	}
}

// CartLineDto is a single cart line priced against the current catalog.
// Missing is set when the product has been removed from the catalog since the
// line was added; such lines are reported, not dropped, and rejected at checkout.
type CartLineDto struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
	Missing   bool   `json:"missing,omitempty"`
}

// CartDto represents a user's cart with a computed total.
type CartDto struct {
	UserID string        `json:"user_id"`
	Lines  []CartLineDto `json:"lines"`
	Total  int64         `json:"total"`
}

// AddItemDto represents the data transfer object for adding a product to a cart.
type AddItemDto struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity"   validate:"omitempty,min=1"`
}

// Get returns the user's cart priced against the current catalog.
func (s *Service) Get(ctx context.Context, userID string) (*CartDto, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart for user %s: %w", userID, err)
	}
	return toDto(userID, doc), nil
}

// Add increments the quantity of a product in the user's cart and persists
// the document. The stock check here is a courtesy for the presentation
// layer; checkout re-validates against the freshly loaded document.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int64) (*CartDto, error) {
	if qty <= 0 {
		qty = 1
	}
	var result *CartDto
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		product, ok := doc.Products[productID]
		if !ok {
			return fmt.Errorf("product %s: %w", productID, shoperrors.ErrProductNotFound)
		}
		if product.Stock <= 0 {
			return fmt.Errorf("%s: %w", product.Name, shoperrors.ErrOutOfStock)
		}
		userCart, ok := doc.Carts[userID]
		if !ok {
			userCart = make(store.Cart)
			doc.Carts[userID] = userCart
		}
		userCart[productID] += qty
		result = toDto(userID, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, shoperrors.ErrProductNotFound) || errors.Is(err, shoperrors.ErrOutOfStock) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add product %s to cart of user %s: %w", productID, userID, err)
	}

	s.logger.InfoContext(ctx, "product added to cart", "user_id", userID, "product_id", productID, "qty", qty)
	return result, nil
}

// Remove decrements the quantity of a product in the user's cart and persists
// the document. The line is deleted once its quantity reaches zero, and the
// cart is deleted once its last line goes.
func (s *Service) Remove(ctx context.Context, userID, productID string, qty int64) (*CartDto, error) {
	if qty <= 0 {
		qty = 1
	}
	var result *CartDto
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		userCart, ok := doc.Carts[userID]
		if !ok {
			return fmt.Errorf("user %s, product %s: %w", userID, productID, shoperrors.ErrCartLineNotFound)
		}
		current, ok := userCart[productID]
		if !ok {
			return fmt.Errorf("user %s, product %s: %w", userID, productID, shoperrors.ErrCartLineNotFound)
		}
		if current-qty > 0 {
			userCart[productID] = current - qty
		} else {
			delete(userCart, productID)
		}
		if len(userCart) == 0 {
			delete(doc.Carts, userID)
		}
		result = toDto(userID, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, shoperrors.ErrCartLineNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to remove product %s from cart of user %s: %w", productID, userID, err)
	}

	s.logger.InfoContext(ctx, "product removed from cart", "user_id", userID, "product_id", productID, "qty", qty)
	return result, nil
}

// Clear deletes the user's cart. Clearing an absent cart is a no-op.
func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		delete(doc.Carts, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "cart cleared", "user_id", userID)
	return nil
}

// toDto prices the user's cart lines against the catalog in doc.
// Lines are sorted by product ID for stable output.
func toDto(userID string, doc *store.Document) *CartDto {
	userCart := doc.Carts[userID]

	ids := make([]string, 0, len(userCart))
	for id := range userCart {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dto := &CartDto{
		UserID: userID,
		Lines:  make([]CartLineDto, 0, len(ids)),
	}
	for _, id := range ids {
		qty := userCart[id]
		line := CartLineDto{
			ProductID: id,
			Quantity:  qty,
		}
		if product, ok := doc.Products[id]; ok {
			line.Name = product.Name
			line.UnitPrice = product.Price
			line.Subtotal = product.Price * qty
			dto.Total += line.Subtotal
		} else {
			line.Missing = true
		}
		dto.Lines = append(dto.Lines, line)
	}
	return dto
}
