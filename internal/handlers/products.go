package handlers

import (
	"net/http"
	"strings"

	"github.com/motocaz/xtractor-backend/internal/billing"
)

type productResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

// ListProducts returns the purchasable catalog reshaped for the frontend.
// Public: pricing pages render before sign-in.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	products, err := h.payments.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("product list failed", "err", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, reshapeProduct(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func reshapeProduct(p billing.Product) productResponse {
	var price billing.Price
	if len(p.Prices) > 0 {
		price = p.Prices[0]
	}

	features := make([]string, 0, len(p.Benefits))
	for _, b := range p.Benefits {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			features = append(features, trimmed)
		}
	}

	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       float64(price.AmountMinor()) / 100,
		Currency:    price.CurrencyCode(),
		Features:    features,
		Popular:     strings.Contains(strings.ToLower(p.Name), "pro"),
	}
}
