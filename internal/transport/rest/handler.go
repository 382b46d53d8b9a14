// Package rest provides the HTTP command surface relayed by the chat gateway.
// Every endpoint maps 1:1 onto a catalog, cart or checkout operation.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/abgdnv/shopbot/internal/cart"
	"github.com/abgdnv/shopbot/internal/catalog"
	"github.com/abgdnv/shopbot/internal/checkout"
	shoperrors "github.com/abgdnv/shopbot/internal/errors"
	"github.com/abgdnv/shopbot/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	catalog    catalog.CatalogService
	cart       cart.CartService
	checkout   checkout.CheckoutService
	validate   *validator.Validate
	logger     *slog.Logger
	adminToken string
}

// NewHandler creates a new instance of the storefront API with the provided services.
func NewHandler(catalogSvc catalog.CatalogService, cartSvc cart.CartService, checkoutSvc checkout.CheckoutService, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:    catalogSvc,
		cart:       cartSvc,
		checkout:   checkoutSvc,
		validate:   validator.New(),
		logger:     logger.With("component", "rest"),
		adminToken: adminToken,
	}
}

// RegisterRoutes registers the HTTP routes for the storefront service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.FindProduct)

		r.Group(func(r chi.Router) {
			r.Use(web.AdminOnly(h.adminToken))
			r.Post("/", h.CreateProduct)
			r.Put("/{id}/stock", h.UpdateStock)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/v1/carts/{userID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddToCart)
		r.Delete("/items/{productID}", h.RemoveFromCart)
		r.Post("/checkout", h.Checkout)
	})

	r.Get("/healthz", h.HealthCheck)
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.FindAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// FindProduct retrieves a product by its ID.
func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathValue(w, r, h.logger, "id")
	if !ok {
		return
	}
	found, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, shoperrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// CreateProduct handles the admin add-product command.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto catalog.ProductCreateDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	created, err := h.catalog.Create(r.Context(), dto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// UpdateStock handles the admin restock command.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathValue(w, r, h.logger, "id")
	if !ok {
		return
	}
	var dto catalog.StockUpdateDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := h.catalog.UpdateStock(r.Context(), id, dto.Stock)
	if err != nil {
		if errors.Is(err, shoperrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found for stock update", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error updating stock", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to update stock for product with ID %s", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Stock updated successfully", "ID", id, "Stock", dto.Stock)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// DeleteProduct handles the admin remove-product command.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathValue(w, r, h.logger, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, shoperrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete product with ID %s", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondJSON(w, h.logger, http.StatusNoContent, nil)
}

// GetCart returns the user's cart priced against the current catalog.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.PathValue(w, r, h.logger, "userID")
	if !ok {
		return
	}
	found, err := h.cart.Get(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving cart", "user_id", userID, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch cart")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// AddToCart handles the add-to-cart action.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.PathValue(w, r, h.logger, "userID")
	if !ok {
		return
	}
	var dto cart.AddItemDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	updated, err := h.cart.Add(r.Context(), userID, dto.ProductID, dto.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, shoperrors.ErrProductNotFound):
			h.logger.WarnContext(r.Context(), "Product not found for cart add", "user_id", userID, "product_id", dto.ProductID)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", dto.ProductID))
		case errors.Is(err, shoperrors.ErrOutOfStock):
			h.logger.WarnContext(r.Context(), "Product out of stock for cart add", "user_id", userID, "product_id", dto.ProductID)
			web.RespondError(w, h.logger, http.StatusConflict, rejectionMessage(err))
		default:
			h.logger.ErrorContext(r.Context(), "Error adding product to cart", "user_id", userID, "error", err)
			web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to add product to cart")
		}
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// RemoveFromCart handles the remove-from-cart action.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.PathValue(w, r, h.logger, "userID")
	if !ok {
		return
	}
	productID, ok := web.PathValue(w, r, h.logger, "productID")
	if !ok {
		return
	}
	qty, ok := parseQuantity(w, r, h.logger)
	if !ok {
		return
	}
	updated, err := h.cart.Remove(r.Context(), userID, productID, qty)
	if err != nil {
		if errors.Is(err, shoperrors.ErrCartLineNotFound) {
			h.logger.WarnContext(r.Context(), "Cart line not found for removal", "user_id", userID, "product_id", productID)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s is not in the cart", productID))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error removing product from cart", "user_id", userID, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to remove product from cart")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// ClearCart handles the clear-cart action.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.PathValue(w, r, h.logger, "userID")
	if !ok {
		return
	}
	if err := h.cart.Clear(r.Context(), userID); err != nil {
		h.logger.ErrorContext(r.Context(), "Error clearing cart", "user_id", userID, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to clear cart")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusNoContent, nil)
}

// Checkout handles the checkout action. Rejections carry the product name and
// the violated limit so the gateway can render them to the user verbatim.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := web.PathValue(w, r, h.logger, "userID")
	if !ok {
		return
	}
	order, err := h.checkout.Checkout(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, shoperrors.ErrEmptyCart):
			h.logger.WarnContext(r.Context(), "Checkout rejected: empty cart", "user_id", userID)
			web.RespondError(w, h.logger, http.StatusConflict, "Your cart is empty")
		case errors.Is(err, shoperrors.ErrProductNotFound):
			h.logger.WarnContext(r.Context(), "Checkout rejected: stale cart line", "user_id", userID, "error", err)
			web.RespondError(w, h.logger, http.StatusConflict, rejectionMessage(err))
		case errors.Is(err, shoperrors.ErrBelowMinimum), errors.Is(err, shoperrors.ErrInsufficientStock):
			h.logger.WarnContext(r.Context(), "Checkout rejected", "user_id", userID, "error", err)
			web.RespondError(w, h.logger, http.StatusConflict, rejectionMessage(err))
		default:
			h.logger.ErrorContext(r.Context(), "Checkout failed", "user_id", userID, "error", err)
			web.RespondError(w, h.logger, http.StatusInternalServerError, "Checkout failed")
		}
		return
	}
	h.logger.InfoContext(r.Context(), "Checkout succeeded", "user_id", userID, "order_id", order.ID, "total", order.Total)
	web.RespondJSON(w, h.logger, http.StatusOK, order)
}

// HealthCheck responds with a simple status to indicate the service is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// decodeAndValidate decodes the request body into dto and validates it.
// On failure it writes the error response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		h.logger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseQuantity reads the optional qty query parameter, defaulting to 1.
func parseQuantity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	raw := r.URL.Query().Get("qty")
	if raw == "" {
		return 1, true
	}
	qty, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || qty < 1 {
		web.RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid qty number: %s", raw))
		return 0, false
	}
	return qty, true
}

// rejectionMessage renders a domain rejection for the user,
// e.g. "Hoodie: only 3 in stock: insufficient stock".
func rejectionMessage(err error) string {
	return err.Error()
}
