package handlers

import (
	"net/http"

	"github.com/motocaz/xtractor-backend/internal/identity"
)

// TestAuth echoes the verified caller identity. Diagnostic only.
func (h *Handler) TestAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := identity.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID})
}
