package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dinewire/internal/domain"
)

type commandRequest struct {
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelAddr string `json:"channel_address,omitempty"`
}

// command runs the free-text ingestion path and acknowledges the outcome
// back to the originating channel. The ack is fire-and-forget: a sender
// failure is logged, the mutation stands.
func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, errBody{Error: "invalid JSON body"})
		return
	}
	if req.Text == "" {
		s.respondErr(w, domain.Invalid("text", "command text is required"))
		return
	}
	channel := domain.Channel(req.Channel)
	if channel == "" {
		channel = domain.ChannelChat
	}

	outcome, err := s.orders.ExecuteText(r.Context(), req.Text, channel, req.ChannelAddr)
	if err != nil {
		s.ack(req.ChannelAddr, "sorry, that failed: "+err.Error())
		s.respondErr(w, err)
		return
	}

	s.ack(req.ChannelAddr, outcome.Message)
	respond(w, http.StatusOK, outcome)
}

func (s *Server) ack(channelAddr, text string) {
	if channelAddr == "" || s.sender == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sender.Send(ctx, channelAddr, text); err != nil {
			s.log.Error("channel_ack_failed", err, map[string]any{"channel_address": channelAddr})
		}
	}()
}
