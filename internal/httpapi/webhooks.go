package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dinewire/internal/domain"
)

type registerWebhookRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

func (s *Server) registerWebhook(w http.ResponseWriter, r *http.Request) {
	var req registerWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}
	sub := &domain.WebhookSubscription{URL: req.URL, Secret: req.Secret, Events: req.Events}
	if err := s.dispatcher.Register(r.Context(), sub); err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, sub)
}

func (s *Server) listWebhooks(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, s.dispatcher.List())
}

func (s *Server) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.dispatcher.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

type testWebhookRequest struct {
	Event   string         `json:"event,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *Server) testWebhook(w http.ResponseWriter, r *http.Request) {
	var req testWebhookRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	err := s.dispatcher.TestTrigger(r.Context(), chi.URLParam(r, "id"), req.Event, req.Payload)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"delivered": true})
}
