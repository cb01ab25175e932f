// Package billing wraps the payments provider: checkout and portal session
// creation, the product catalog, and the webhook event model. Handlers depend
// on the Provider interface so tests can swap the Stripe-backed client out.
package billing

import (
	"context"
	"strings"
)

// MetadataUserID is the checkout-session metadata key that links a session
// back to the authenticated caller.
const MetadataUserID = "userId"

type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID string) (*PortalSession, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

type CheckoutParams struct {
	PriceID        string
	Quantity       int64
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Status     string            `json:"status,omitempty"`
	CustomerID string            `json:"customerId,omitempty"`
	Metadata   map[string]string `json:"metadata"`
}

type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Prices      []Price  `json:"prices"`
	Benefits    []string `json:"benefits"`
}

// Price is a provider catalog price. Providers have shipped two field-naming
// conventions for the amount and currency; both are accepted and the accessors
// pick whichever is present.
type Price struct {
	PriceAmount   int64  `json:"price_amount,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	PriceCurrency string `json:"price_currency,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// AmountMinor returns the price in minor units, 0 when neither convention is set.
func (p Price) AmountMinor() int64 {
	if p.PriceAmount != 0 {
		return p.PriceAmount
	}
	return p.Amount
}

// CurrencyCode returns the upper-case currency code, "USD" when neither
// convention is set.
func (p Price) CurrencyCode() string {
	if c := strings.TrimSpace(p.PriceCurrency); c != "" {
		return strings.ToUpper(c)
	}
	if c := strings.TrimSpace(p.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "USD"
}
