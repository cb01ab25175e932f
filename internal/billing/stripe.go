package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/product"
)

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

type Config struct {
	AccessToken     string
	Environment     string // sandbox | production
	APIBase         string // optional override, mainly for sandbox
	PortalReturnURL string
}

// Client is the Stripe-backed Provider. It is constructed once at startup;
// the provider SDK keys off a process-wide access token.
type Client struct {
	environment     string
	portalReturnURL string
	logger          *slog.Logger
}

func NewClient(logger *slog.Logger, cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("billing: access token is required")
	}

	env := strings.TrimSpace(strings.ToLower(cfg.Environment))
	switch env {
	case "":
		env = EnvSandbox
	case EnvSandbox, EnvProduction:
	default:
		return nil, fmt.Errorf("billing: unknown environment %q", cfg.Environment)
	}

	stripe.Key = token
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(base),
		}))
	}

	logger.Info("payments client configured", "environment", env)
	return &Client{
		environment:     env,
		portalReturnURL: strings.TrimSpace(cfg.PortalReturnURL),
		logger:          logger,
	}, nil
}

func (c *Client) Environment() string { return c.environment }

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(p.SuccessURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		Metadata: p.Metadata,
	}
	params.Context = ctx
	if p.CancelURL != "" {
		params.CancelURL = stripe.String(p.CancelURL)
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if p.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(p.IdempotencyKey)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return checkoutFromStripe(sess), nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := checkoutsession.Get(id, params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return checkoutFromStripe(sess), nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (*PortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	if c.portalReturnURL != "" {
		params.ReturnURL = stripe.String(c.portalReturnURL)
	}

	sess, err := portalsession.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return &PortalSession{ID: sess.ID, URL: sess.URL}, nil
}

// ListProducts returns active products with a recurring default price.
// Archived products are inactive on the provider side and never listed.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	params := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.default_price")

	var out []Product
	iter := product.List(params)
	for iter.Next() {
		p := iter.Product()
		if p.DefaultPrice == nil || p.DefaultPrice.Recurring == nil {
			continue
		}

		var benefits []string
		for _, f := range p.MarketingFeatures {
			if f != nil && strings.TrimSpace(f.Name) != "" {
				benefits = append(benefits, f.Name)
			}
		}

		out = append(out, Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Prices: []Price{{
				PriceAmount:   p.DefaultPrice.UnitAmount,
				PriceCurrency: string(p.DefaultPrice.Currency),
			}},
			Benefits: benefits,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr(err)
	}
	return out, nil
}

func checkoutFromStripe(sess *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:       sess.ID,
		URL:      sess.URL,
		Status:   string(sess.Status),
		Metadata: sess.Metadata,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	return out
}

func wrapStripeErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.Type == stripe.ErrorTypeInvalidRequest {
			return newError(KindInvalidInput, sErr.Msg, err)
		}
		return newError(KindUpstream, sErr.Msg, err)
	}
	return newError(KindNetwork, "", err)
}
