package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"

	"dinewire/internal/domain"
)

type menuItemRequest struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Available *bool           `json:"available,omitempty"`
}

func (s *Server) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}
	if req.Name == "" {
		s.respondErr(w, domain.Invalid("name", "name is required"))
		return
	}
	if req.Price.IsNegative() {
		s.respondErr(w, domain.Invalid("price", "must not be negative"))
		return
	}
	item := &domain.MenuItem{
		ID:        cuid.New(),
		Name:      req.Name,
		Price:     req.Price,
		Category:  req.Category,
		Available: req.Available == nil || *req.Available,
	}
	if err := s.menu.Create(r.Context(), item); err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, item)
}

func (s *Server) listMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.menu.List(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}
