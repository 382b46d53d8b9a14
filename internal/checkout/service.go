// Package checkout provides the implementation of the checkout business logic:
// cart validation, stock decrement and order emission.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/internal/store"
	"github.com/abgdnv/shopbot/pkg/messaging"
	"github.com/abgdnv/shopbot/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutService defines the checkout operation.
type CheckoutService interface {
	// Checkout validates the user's cart against the catalog, decrements
	// stock for every line, clears the cart in the same write and returns
	// the finalized order. Validation is all-or-nothing: the first failing
	// line aborts the checkout with no mutation at all.
	//
	// Returns ErrEmptyCart for an empty or absent cart, ErrProductNotFound
	// for a stale line, ErrBelowMinimum when a quantity is under the
	// product's minimum, ErrInsufficientStock when it exceeds stock.
	Checkout(ctx context.Context, userID string) (*OrderDto, error)
}

// Service implements CheckoutService on top of the document store.
// A finalized order is published to the order event stream for channel
// provisioning; it is never written back to the document.
type Service struct {
	store         store.DocumentStore
	publisher     messaging.Publisher
	logger        *slog.Logger
	ordersCounter metric.Int64Counter
}

// NewService creates a new instance of CheckoutService with the provided
// store and publisher.
func NewService(docStore store.DocumentStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	return &Service{
		store:         docStore,
		publisher:     publisher,
		logger:        logger.With("component", "checkout"),
		ordersCounter: ordersCounter,
	}
}

// OrderLineDto is one priced line of a finalized order.
type OrderLineDto struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderDto represents a finalized order. Orders are transient: they exist
// only as the checkout result and the payload handed to the notifier.
type OrderDto struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Lines     []OrderLineDto `json:"lines"`
	Total     int64          `json:"total"`
	CreatedAt string         `json:"created_at"`
}

// Checkout runs the whole checkout inside a single store mutation, so
// validation, stock decrement and cart removal are one atomic write.
func (s *Service) Checkout(ctx context.Context, userID string) (*OrderDto, error) {
	var order *OrderDto
	err := s.store.Mutate(ctx, func(doc *store.Document) error {
		userCart := doc.Carts[userID]
		if len(userCart) == 0 {
			return fmt.Errorf("user %s: %w", userID, shoperrors.ErrEmptyCart)
		}

		// Line order only decides which violation is reported first;
		// sorting keeps that choice deterministic.
		ids := make([]string, 0, len(userCart))
		for id := range userCart {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			qty := userCart[id]
			product, ok := doc.Products[id]
			if !ok {
				return fmt.Errorf("product %s: %w", id, shoperrors.ErrProductNotFound)
			}
			if qty < product.MinQty {
				return fmt.Errorf("%s: minimum order quantity is %d: %w", product.Name, product.MinQty, shoperrors.ErrBelowMinimum)
			}
			if qty > product.Stock {
				return fmt.Errorf("%s: only %d in stock: %w", product.Name, product.Stock, shoperrors.ErrInsufficientStock)
			}
		}

		lines := make([]OrderLineDto, 0, len(ids))
		var total int64
		for _, id := range ids {
			qty := userCart[id]
			product := doc.Products[id]
			product.Stock -= qty
			doc.Products[id] = product

			subtotal := product.Price * qty
			lines = append(lines, OrderLineDto{
				ProductID: id,
				Name:      product.Name,
				Quantity:  qty,
				UnitPrice: product.Price,
				Subtotal:  subtotal,
			})
			total += subtotal
		}
		delete(doc.Carts, userID)

		order = &OrderDto{
			ID:        uuid.NewString(),
			UserID:    userID,
			Lines:     lines,
			Total:     total,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		if isRejection(err) {
			// Rejections already carry the product name and the violated
			// limit; they are rendered to the user verbatim.
			return nil, err
		}
		return nil, fmt.Errorf("checkout failed for user %s: %w", userID, err)
	}

	// The checkout is committed at this point; a publish failure must not
	// undo it, so it is logged and the order is still returned.
	if err := s.publisher.Publish(ctx, toEvent(order)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event", "order_id", order.ID, "error", err)
	}
	s.ordersCounter.Add(ctx, 1)

	s.logger.InfoContext(ctx, "checkout completed", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}

// isRejection reports whether err is a checkout validation failure rather
// than an infrastructure error.
func isRejection(err error) bool {
	return errors.Is(err, shoperrors.ErrEmptyCart) ||
		errors.Is(err, shoperrors.ErrProductNotFound) ||
		errors.Is(err, shoperrors.ErrBelowMinimum) ||
		errors.Is(err, shoperrors.ErrInsufficientStock)
}

// toEvent converts a finalized order to its OrderCreatedEvent payload.
func toEvent(order *OrderDto) events.OrderCreatedEvent {
	createdAt, _ := time.Parse(time.RFC3339, order.CreatedAt)
	lines := make([]events.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, events.OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return events.OrderCreatedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Lines:      lines,
		TotalPrice: order.Total,
		CreatedAt:  createdAt,
	}
}
