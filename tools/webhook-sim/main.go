// webhook-sim signs and sends subscription lifecycle events at a running
// relay, for end-to-end checks without the payments provider.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/motocaz/xtractor-backend/libs/runtime"
	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL    = flag.String("base-url", runtime.Getenv("BASE_URL", "http://localhost:8787"), "relay base url")
		evtType    = flag.String("type", runtime.Getenv("EVENT_TYPE", "subscription.active"), "event type (subscription.active | subscription.revoked)")
		checkoutID = flag.String("checkout-id", runtime.Getenv("CHECKOUT_ID", ""), "checkout session the subscription came from")
		customerID = flag.String("customer-id", runtime.Getenv("CUSTOMER_ID", "cus_sim_1"), "provider customer id")
		subID      = flag.String("subscription-id", runtime.Getenv("SUBSCRIPTION_ID", ""), "subscription id (generated when empty)")
		secret     = flag.String("secret", runtime.Getenv("PAYMENTS_WEBHOOK_SECRET", ""), "webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("PAYMENTS_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*checkoutID) == "" {
		fatal("CHECKOUT_ID is required")
	}

	subscriptionID := strings.TrimSpace(*subID)
	if subscriptionID == "" {
		subscriptionID = "sub_sim_" + uuid.NewString()
	}

	now := time.Now().UTC()
	status := "active"
	if *evtType == "subscription.revoked" {
		status = "canceled"
	}

	payload, err := json.Marshal(map[string]any{
		"id":      "evt_sim_" + uuid.NewString(),
		"object":  "event",
		"created": now.Unix(),
		"type":    *evtType,
		"data": map[string]any{
			"object": map[string]any{
				"id":          subscriptionID,
				"status":      status,
				"customer_id": *customerID,
				"checkout_id": *checkoutID,
			},
		},
	})
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/webhook", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d subscription_id=%s\n", resp.StatusCode, subscriptionID)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
