package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/motocaz/xtractor-backend/internal/billing"
)

func getProducts(h *Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rw := httptest.NewRecorder()
	h.ListProducts(rw, req)
	return rw
}

func TestListProductsReshaping(t *testing.T) {
	provider := &fakeProvider{
		products: []billing.Product{
			{
				ID:          "prod_1",
				Name:        "Xtractor Pro",
				Description: "Full access",
				Prices:      []billing.Price{{PriceAmount: 1999, PriceCurrency: "usd"}},
				Benefits:    []string{"Unlimited extractions", "Priority support"},
			},
			{
				ID:     "prod_2",
				Name:   "Starter",
				Prices: []billing.Price{{Amount: 500, Currency: "eur"}},
			},
			{
				ID:     "prod_3",
				Name:   "Legacy",
				Prices: []billing.Price{{}},
			},
			{
				ID:   "prod_4",
				Name: "PROMO tier",
			},
		},
	}
	h := newTestHandler(provider, &fakeStore{})

	rw := getProducts(h)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var resp struct {
		Products []productResponse `json:"products"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(resp.Products))
	}

	pro := resp.Products[0]
	if pro.Price != 19.99 || pro.Currency != "USD" {
		t.Errorf("minor units should convert to major, got %v %s", pro.Price, pro.Currency)
	}
	if !pro.Popular {
		t.Error("name containing 'Pro' should be flagged popular")
	}
	if len(pro.Features) != 2 {
		t.Errorf("benefits should flatten into features, got %v", pro.Features)
	}

	starter := resp.Products[1]
	if starter.Price != 5 || starter.Currency != "EUR" {
		t.Errorf("legacy price convention should be honored, got %v %s", starter.Price, starter.Currency)
	}
	if starter.Popular {
		t.Error("'Starter' should not be flagged popular")
	}

	legacy := resp.Products[2]
	if legacy.Price != 0 || legacy.Currency != "USD" {
		t.Errorf("missing price fields should default to 0/USD, got %v %s", legacy.Price, legacy.Currency)
	}

	promo := resp.Products[3]
	if promo.Price != 0 || promo.Currency != "USD" {
		t.Errorf("absent price list should default to 0/USD, got %v %s", promo.Price, promo.Currency)
	}
	if !promo.Popular {
		t.Error("popularity match must be case-insensitive")
	}
}

func TestListProductsProviderError(t *testing.T) {
	provider := &fakeProvider{productsErr: errors.New("upstream down")}
	h := newTestHandler(provider, &fakeStore{})

	rw := getProducts(h)
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}
