package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/api/handlers"
	custommiddleware "github.com/pfolio/portfolio-api/internal/api/middleware"
	"github.com/pfolio/portfolio-api/internal/config"
	"github.com/pfolio/portfolio-api/internal/service"
)

// Services are the service layer dependencies of the HTTP API.
type Services struct {
	System      *service.SystemService
	Import      *service.ImportService
	Portfolio   *service.PortfolioService
	Transaction *service.TransactionService
	Price       *service.PriceService
	Fx          *service.FxService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/import", func(r chi.Router) {
			importHandler := handlers.NewImportHandler(svc.Import)
			r.Post("/", importHandler.Import)
			r.Post("/preview", importHandler.Preview)
			r.Post("/table", importHandler.ImportTable)
			r.Post("/table/preview", importHandler.PreviewTable)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Price)
			r.Get("/holdings", portfolioHandler.Holdings)
			r.Get("/summary", portfolioHandler.Summary)
			r.Get("/history", portfolioHandler.History)
			r.Post("/prices/refresh", portfolioHandler.RefreshPrices)

			r.Route("/transactions", func(r chi.Router) {
				transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
				r.Get("/", transactionHandler.Transactions)
				r.Post("/", transactionHandler.CreateTransaction)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", transactionHandler.GetTransaction)
					r.Delete("/", transactionHandler.DeleteTransaction)
				})
			})
		})

		r.Route("/fx", func(r chi.Router) {
			fxHandler := handlers.NewFxHandler(svc.Fx, svc.Portfolio)
			r.Post("/override", fxHandler.Override)
			r.Get("/rate", fxHandler.Rate)
			r.Post("/refresh", fxHandler.Refresh)
		})
	})

	return r
}
