// Package notify carries state changes back out to the world beside the
// webhook path: channel acknowledgements over AMQP and an optional Kafka
// activity stream. Everything here is fire-and-forget from the core's view.
package notify

import (
	"context"

	"dinewire/internal/logger"
)

// Sender acknowledges an order action back to its originating channel.
// Failures are logged by callers and never roll back the mutation.
type Sender interface {
	Send(ctx context.Context, channelAddr, text string) error
}

// LogSender is the no-broker fallback: acknowledgements go to the log only.
type LogSender struct {
	Log *logger.Logger
}

func (s *LogSender) Send(_ context.Context, channelAddr, text string) error {
	s.Log.Info("channel_ack", map[string]any{"channel_address": channelAddr, "text": text})
	return nil
}
