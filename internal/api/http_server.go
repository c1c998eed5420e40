package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"buildops/internal/config"
	"buildops/internal/domain"
	"buildops/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Services are the engine entry points the HTTP layer calls.
type Services struct {
	Clients   *service.ClientService
	Catalog   *service.CatalogService
	Inventory *service.InventoryService
	Bookings  *service.BookingService
	Reports   *service.ReportService

	// Store is pinged by /healthz when set.
	Store    domain.BlobStore
	Location *time.Location
	Now      func() time.Time
}

// HTTPServer exposes the JSON API.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	if svc.Location == nil {
		svc.Location = time.UTC
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	srv := &HTTPServer{cfg: cfg, svc: svc, logger: logger}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(rateLimit(newRateLimiter(s.cfg.RateLimit)))
	r.Use(countRoutes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.listClients)
			r.Post("/", s.createClient)
			r.Get("/{id}", s.getClient)
			r.Put("/{id}", s.updateClient)
			r.Delete("/{id}", s.deleteClient)
		})
		r.Route("/services", func(r chi.Router) {
			r.Get("/", s.listServices)
			r.Post("/", s.createService)
			r.Get("/{id}", s.getService)
			r.Put("/{id}", s.updateService)
			r.Delete("/{id}", s.deleteService)
		})
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", s.listInventory)
			r.Get("/categories", s.listCategories)
			r.Post("/", s.createInventory)
			r.Get("/{id}", s.getInventory)
			r.Put("/{id}", s.updateInventory)
			r.Delete("/{id}", s.deleteInventory)
		})
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", s.listBookings)
			r.Post("/", s.createBooking)
			r.Get("/{id}", s.getBooking)
			r.Put("/{id}", s.updateBooking)
			r.Delete("/{id}", s.deleteBooking)
			r.Patch("/{id}/status", s.changeBookingStatus)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", s.listPayments)
			r.Get("/{id}", s.getPayment)
			r.Post("/{id}/pay", s.processPayment)
			r.Get("/{id}/invoice", s.getInvoice)
		})
		r.Get("/reports/statement", s.getStatement)
		r.Get("/reports/dashboard", s.getDashboard)
		r.Get("/schedule/{day}", s.getSchedule)
	})

	return r
}

// Handler returns the routed handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
