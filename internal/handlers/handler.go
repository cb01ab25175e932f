// Package handlers implements the relay's HTTP surface: the payments webhook
// receiver, checkout and portal session creation, the product catalog, and the
// auth probe.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/motocaz/xtractor-backend/internal/identity"
)

type Handler struct {
	payments         billing.Provider
	users            identity.Store
	logger           *slog.Logger
	webhookSecret    string
	webhookTolerance time.Duration
	frontendURL      string
}

type Config struct {
	WebhookSecret           string
	WebhookToleranceSeconds int
	FrontendURL             string
}

func New(payments billing.Provider, users identity.Store, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.WebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	return &Handler{
		payments:         payments,
		users:            users,
		logger:           logger,
		webhookSecret:    strings.TrimSpace(cfg.WebhookSecret),
		webhookTolerance: time.Duration(tolSeconds) * time.Second,
		frontendURL:      strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/"),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
