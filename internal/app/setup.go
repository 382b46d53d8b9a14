// Package app contains the application setup for the storefront service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/shopbot/internal/cart"
	"github.com/abgdnv/shopbot/internal/catalog"
	"github.com/abgdnv/shopbot/internal/checkout"
	"github.com/abgdnv/shopbot/internal/config"
	"github.com/abgdnv/shopbot/internal/store"
	"github.com/abgdnv/shopbot/internal/transport/rest"
	"github.com/abgdnv/shopbot/pkg/messaging"
	"github.com/abgdnv/shopbot/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Catalog  catalog.CatalogService
	Cart     cart.CartService
	Checkout checkout.CheckoutService
	Logger   *slog.Logger
}

func SetupDependencies(docStore store.DocumentStore, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		Catalog:  catalog.NewService(docStore, logger),
		Cart:     cart.NewService(docStore, logger),
		Checkout: checkout.NewService(docStore, publisher, logger),
		Logger:   logger,
	}
}

// SetupHttpHandler initializes the router and routes for the storefront
// application. Used by handler tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, cfg)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies, cfg *config.Config) {
	handler := rest.NewHandler(deps.Catalog, deps.Cart, deps.Checkout, cfg.Admin.Token, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
