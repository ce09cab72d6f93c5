package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dinewire/internal/domain"
)

const (
	headerSignature = "X-Dinewire-Signature"
	headerEvent     = "X-Dinewire-Event"
)

// wireBody is the POST body receivers see. DeliveryID stays identical
// across retries of the same logical delivery so receivers can deduplicate.
type wireBody struct {
	Event      string         `json:"event"`
	Payload    map[string]any `json:"payload"`
	Timestamp  time.Time      `json:"timestamp"`
	WebhookID  string         `json:"webhookId"`
	DeliveryID string         `json:"deliveryId"`
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

// process runs the attempt/backoff loop for one delivery. Backoff doubles
// from the base and the attempt count is capped; exhaustion is recorded as
// an activity, never escalated.
func (d *Dispatcher) process(ctx context.Context, job delivery) {
	backoff := d.cfg.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if !d.active(job.sub.ID) {
			d.log.Info("delivery_canceled", map[string]any{
				"subscription": job.sub.ID, "delivery_id": job.ev.DeliveryID,
			})
			return
		}

		lastErr = d.attempt(ctx, job.sub, job.ev)
		if lastErr == nil {
			d.log.Debug("delivery_succeeded", map[string]any{
				"subscription": job.sub.ID, "event": job.ev.Name,
				"delivery_id": job.ev.DeliveryID, "attempt": attempt,
			})
			return
		}

		d.log.Debug("delivery_attempt_failed", map[string]any{
			"subscription": job.sub.ID, "event": job.ev.Name,
			"delivery_id": job.ev.DeliveryID, "attempt": attempt, "error": lastErr.Error(),
		})
		if attempt == d.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	d.log.Error("delivery_failed", lastErr, map[string]any{
		"subscription": job.sub.ID, "event": job.ev.Name,
		"delivery_id": job.ev.DeliveryID, "attempts": d.cfg.MaxAttempts,
	})
	if d.failures != nil {
		d.failures.RecordFailure(ctx, orderIDFromPayload(job.ev.Payload), "webhook.delivery_failed", map[string]any{
			"subscription": job.sub.ID,
			"event":        job.ev.Name,
			"delivery_id":  job.ev.DeliveryID,
			"url":          job.sub.URL,
			"error":        lastErr.Error(),
		})
	}
}

// attempt makes one signed HTTP POST. Non-2xx counts as failure.
func (d *Dispatcher) attempt(ctx context.Context, sub domain.WebhookSubscription, ev domain.Event) error {
	body, err := json.Marshal(wireBody{
		Event:      ev.Name,
		Payload:    ev.Payload,
		Timestamp:  ev.Timestamp,
		WebhookID:  sub.ID,
		DeliveryID: ev.DeliveryID,
	})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	actx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, ev.Name)
	req.Header.Set(headerSignature, Sign(body, sub.Secret))

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d: %w", resp.StatusCode, domain.ErrDeliveryFailure)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of body under the subscription secret.
// Exported so receivers in tests (and docs) verify with the same code.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func orderIDFromPayload(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if o, ok := payload["order"].(*domain.Order); ok {
		return o.ID
	}
	if b, ok := payload["bill"].(*domain.Bill); ok {
		return b.OrderID
	}
	if t, ok := payload["kitchen_token"].(*domain.KitchenToken); ok {
		return t.OrderID
	}
	return ""
}
