package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/motocaz/xtractor-backend/internal/identity"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Webhook receives subscription lifecycle events from the payments provider.
// Signature verification is the auth; there is no bearer token on this path.
// Once the signature checks out the event is always acknowledged — metadata
// update failures are logged and swallowed, the provider does not retry.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.webhookSecret == "" {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing signature", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.webhookSecret, h.webhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payments webhook received",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	switch billing.KindOfEvent(evtType) {
	case billing.EventSubscriptionActive:
		if err := h.applySubscriptionActive(r.Context(), evt.Data.Raw); err != nil {
			h.logger.Error("subscription activation not applied", "err", err, "provider_event_id", evt.ID)
		}
	case billing.EventSubscriptionRevoked:
		if err := h.applySubscriptionRevoked(r.Context(), evt.Data.Raw); err != nil {
			h.logger.Error("subscription revocation not applied", "err", err, "provider_event_id", evt.ID)
		}
	default:
		h.logger.Info("payments webhook ignored", "event_type", evtType)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

// applySubscriptionActive overwrites the linked user's metadata with the
// activated subscription state.
func (h *Handler) applySubscriptionActive(ctx context.Context, raw json.RawMessage) error {
	var evt billing.SubscriptionEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return err
	}

	userID, err := h.resolveCheckoutUser(ctx, evt.CheckoutID)
	if err != nil {
		return err
	}
	if userID == "" {
		h.logger.Warn("checkout session has no linked user", "checkout_id", evt.CheckoutID, "subscription_id", evt.ID)
		return nil
	}

	if err := h.users.SetMetadata(ctx, userID, map[string]string{
		"subscriptionId": evt.ID,
		"customerId":     evt.CustomerID,
		"plan":           "pro",
		"status":         "active",
	}); err != nil {
		return err
	}

	h.logger.Info("subscription activated", "user_id", userID, "subscription_id", evt.ID)
	return nil
}

// applySubscriptionRevoked downgrades the linked user while keeping the rest
// of their metadata. An already-recorded subscriptionId wins over the event's.
func (h *Handler) applySubscriptionRevoked(ctx context.Context, raw json.RawMessage) error {
	var evt billing.SubscriptionEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return err
	}

	userID, err := h.resolveCheckoutUser(ctx, evt.CheckoutID)
	if err != nil {
		return err
	}
	if userID == "" {
		h.logger.Warn("checkout session has no linked user", "checkout_id", evt.CheckoutID, "subscription_id", evt.ID)
		return nil
	}

	current, err := h.users.Metadata(ctx, userID)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			return err
		}
		current = map[string]string{}
	}

	subscriptionID := current["subscriptionId"]
	if subscriptionID == "" {
		subscriptionID = evt.ID
	}

	merged := make(map[string]string, len(current)+4)
	for k, v := range current {
		merged[k] = v
	}
	merged["subscriptionId"] = subscriptionID
	merged["customerId"] = evt.CustomerID
	merged["plan"] = "free"
	merged["status"] = "revoked"

	if err := h.users.SetMetadata(ctx, userID, merged); err != nil {
		return err
	}

	h.logger.Info("subscription revoked", "user_id", userID, "subscription_id", subscriptionID)
	return nil
}

// resolveCheckoutUser maps an event's checkout reference to the user identity
// stamped on the originating checkout session. Empty results are no-ops for
// the caller, not errors.
func (h *Handler) resolveCheckoutUser(ctx context.Context, checkoutID string) (string, error) {
	if strings.TrimSpace(checkoutID) == "" {
		h.logger.Warn("subscription event carries no checkout reference")
		return "", nil
	}

	sess, err := h.payments.GetCheckoutSession(ctx, checkoutID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sess.Metadata[billing.MetadataUserID]), nil
}
