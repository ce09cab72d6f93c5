// Package httpapi is the management surface: order operations, free-text
// commands and webhook subscription administration.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dinewire/internal/domain"
	"dinewire/internal/logger"
	"dinewire/internal/notify"
	"dinewire/internal/orders"
	"dinewire/internal/repository"
	"dinewire/internal/webhook"
)

type Server struct {
	orders     *orders.Service
	menu       repository.MenuItemRepository
	dispatcher *webhook.Dispatcher
	sender     notify.Sender
	log        *logger.Logger
}

func NewServer(svc *orders.Service, menu repository.MenuItemRepository, dispatcher *webhook.Dispatcher, sender notify.Sender, log *logger.Logger) *Server {
	return &Server{orders: svc, menu: menu, dispatcher: dispatcher, sender: sender, log: log.Named("http")}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Get("/", s.listOrders)
		r.Get("/{id}", s.getOrder)
		r.Post("/{id}/items", s.addItem)
		r.Post("/{id}/status", s.setStatus)
		r.Post("/{id}/advance", s.advance)
		r.Delete("/{id}", s.deleteOrder)
		r.Post("/{id}/bill", s.generateBill)
	})
	r.Post("/bills/{id}/pay", s.payBill)
	r.Post("/commands", s.command)

	r.Post("/menu-items", s.createMenuItem)
	r.Get("/menu-items", s.listMenuItems)

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/", s.registerWebhook)
		r.Get("/", s.listWebhooks)
		r.Delete("/{id}", s.removeWebhook)
		r.Post("/{id}/test", s.testWebhook)
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http_listening", map[string]any{"port": port})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errBody struct {
	Error string `json:"error"`
}

// respondErr maps the error taxonomy onto HTTP statuses.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respond(w, http.StatusNotFound, errBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderNotDeletable),
		errors.Is(err, domain.ErrPaymentRequired),
		errors.Is(err, domain.ErrBillAlreadyExists):
		respond(w, http.StatusConflict, errBody{Error: err.Error()})
	case domain.IsValidation(err):
		respond(w, http.StatusBadRequest, errBody{Error: err.Error()})
	case errors.Is(err, domain.ErrDeliveryFailure):
		respond(w, http.StatusBadGateway, errBody{Error: err.Error()})
	default:
		s.log.Error("internal_error", err, nil)
		respond(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}
