package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/motocaz/xtractor-backend/internal/identity"
)

// CreatePortalSession returns a provider-hosted portal URL for the caller's
// existing subscription, keyed by the customerId on file with the identity
// provider.
func (h *Handler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := identity.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	metadata, err := h.users.Metadata(r.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			http.Error(w, "no active subscription", http.StatusNotFound)
			return
		}
		h.logger.Error("metadata lookup failed", "err", err, "user_id", userID)
		http.Error(w, "failed to load subscription", http.StatusInternalServerError)
		return
	}

	customerID := strings.TrimSpace(metadata["customerId"])
	if customerID == "" {
		http.Error(w, "no active subscription", http.StatusNotFound)
		return
	}

	sess, err := h.payments.CreatePortalSession(r.Context(), customerID)
	if err != nil {
		h.logger.Error("portal session create failed", "err", err, "user_id", userID, "customer_id", customerID)
		http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": sess.URL})
}
