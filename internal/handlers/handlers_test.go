package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type fakeProvider struct {
	createFn    func(billing.CheckoutParams) (*billing.CheckoutSession, error)
	sessions    map[string]*billing.CheckoutSession
	portalFn    func(customerID string) (*billing.PortalSession, error)
	products    []billing.Product
	productsErr error

	createCalls int
	getCalls    int
	lastParams  billing.CheckoutParams
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.createCalls++
	f.lastParams = p
	if f.createFn != nil {
		return f.createFn(p)
	}
	return &billing.CheckoutSession{ID: "ch_new", URL: "https://pay.example.com/ch_new", Metadata: p.Metadata}, nil
}

func (f *fakeProvider) GetCheckoutSession(_ context.Context, id string) (*billing.CheckoutSession, error) {
	f.getCalls++
	if sess, ok := f.sessions[id]; ok {
		return sess, nil
	}
	return nil, fmt.Errorf("checkout session %s not found", id)
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID string) (*billing.PortalSession, error) {
	if f.portalFn != nil {
		return f.portalFn(customerID)
	}
	return &billing.PortalSession{ID: "pts_1", URL: "https://portal.example.com/" + customerID}, nil
}

func (f *fakeProvider) ListProducts(_ context.Context) ([]billing.Product, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

type fakeStore struct {
	metadata map[string]map[string]string
	getErr   error
	setErr   error

	getCalls int
	setCalls int
}

func (f *fakeStore) Metadata(_ context.Context, userID string) (map[string]string, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	md, ok := f.metadata[userID]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SetMetadata(_ context.Context, userID string, md map[string]string) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	if f.metadata == nil {
		f.metadata = map[string]map[string]string{}
	}
	f.metadata[userID] = md
	return nil
}

func newTestHandler(provider *fakeProvider, store *fakeStore) *Handler {
	return New(provider, store, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		WebhookSecret: testWebhookSecret,
		FrontendURL:   "https://app.example.com",
	})
}

// signedEvent builds a provider event envelope around obj and signs it with
// the given webhook secret.
func signedEvent(t *testing.T, secret, eventType string, obj map[string]any) (payload []byte, sigHeader string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"type":        eventType,
		"data":        map[string]any{"object": obj},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return payload, signed.Header
}
