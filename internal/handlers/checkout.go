package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/motocaz/xtractor-backend/internal/identity"
)

type checkoutRequest struct {
	PriceID       string            `json:"priceId"`
	Quantity      int64             `json:"quantity,omitempty"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	CancelURL     string            `json:"cancelUrl,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CreateCheckout creates a provider checkout session for the authenticated
// caller. The caller's identity is stamped into the session metadata and wins
// over any caller-supplied value for the same key.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := identity.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		http.Error(w, "request body is required", http.StatusBadRequest)
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[billing.MetadataUserID] = userID

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		idemKey = uuid.NewString()
	}

	sess, err := h.payments.CreateCheckoutSession(r.Context(), billing.CheckoutParams{
		PriceID:        req.PriceID,
		Quantity:       req.Quantity,
		CustomerEmail:  req.CustomerEmail,
		SuccessURL:     h.frontendURL + "/success?checkout_id={CHECKOUT_ID}",
		CancelURL:      req.CancelURL,
		Metadata:       metadata,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		switch billing.KindOf(err) {
		case billing.KindInvalidInput:
			h.logger.Warn("checkout session rejected by provider", "err", err, "user_id", userID)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "invalid checkout options",
				"detail": billing.Detail(err),
			})
		default:
			h.logger.Error("checkout session create failed", "err", err, "user_id", userID)
			http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		}
		return
	}

	resp := map[string]any{"session": sess}
	status := http.StatusCreated
	if sess.Metadata[billing.MetadataUserID] != userID {
		// Session was created; surface the missing linkage instead of failing.
		h.logger.Warn("checkout session metadata does not echo caller identity",
			"session_id", sess.ID, "user_id", userID)
		resp["warning"] = "checkout session metadata is missing the caller identity"
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}
