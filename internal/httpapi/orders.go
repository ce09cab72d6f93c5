package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"dinewire/internal/domain"
	"dinewire/internal/orders"
)

type createOrderRequest struct {
	TableNumber   *string          `json:"table_number,omitempty"`
	Channel       string           `json:"channel"`
	ChannelAddr   string           `json:"channel_address,omitempty"`
	Items         []itemRequest    `json:"items,omitempty"`
	Text          string           `json:"text,omitempty"` // free text, resolved via the matcher
	TotalOverride *decimal.Decimal `json:"total_amount,omitempty"`
}

type itemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

type createOrderResponse struct {
	Order      *domain.Order `json:"order"`
	Unresolved []string      `json:"unresolved_items,omitempty"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}

	in := orders.CreateInput{
		Table:         req.TableNumber,
		Channel:       domain.Channel(req.Channel),
		ChannelAddr:   req.ChannelAddr,
		TotalOverride: req.TotalOverride,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.ItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity, Notes: it.Notes})
	}

	if req.Text != "" && len(in.Items) == 0 {
		order, unresolved, err := s.orders.CreateFromText(r.Context(), req.Text, in)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		respond(w, http.StatusCreated, createOrderResponse{Order: order, Unresolved: unresolved})
		return
	}

	order, err := s.orders.Create(r.Context(), in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, createOrderResponse{Order: order})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.List(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetByRef(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}
	order, err := s.orders.AddItem(r.Context(), chi.URLParam(r, "id"),
		orders.ItemInput{MenuItemID: req.MenuItemID, Quantity: req.Quantity, Notes: req.Notes})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	order, err := s.changeStatus(r, false)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	order, err := s.changeStatus(r, true)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (s *Server) changeStatus(r *http.Request, multiStep bool) (*domain.Order, error) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, domain.Invalid("body", "invalid JSON")
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return nil, domain.Invalid("status", "unknown status "+req.Status)
	}
	id := chi.URLParam(r, "id")
	if multiStep {
		return s.orders.Advance(r.Context(), id, status)
	}
	return s.orders.SetStatus(r.Context(), id, status)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

type generateBillRequest struct {
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"payment_method"`
}

func (s *Server) generateBill(w http.ResponseWriter, r *http.Request) {
	var req generateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}
	bill, err := s.orders.GenerateBill(r.Context(), chi.URLParam(r, "id"), req.Discount, req.PaymentMethod)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, bill)
}

func (s *Server) payBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.orders.MarkBillPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, bill)
}
