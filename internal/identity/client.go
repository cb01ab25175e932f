// Package identity talks to the identity provider: bearer-token verification
// and the per-user metadata store. The provider is the only owner of persisted
// user state; this service reads and overwrites metadata wholesale.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("identity: user not found")

// Store is the metadata surface handlers depend on.
type Store interface {
	Metadata(ctx context.Context, userID string) (map[string]string, error)
	SetMetadata(ctx context.Context, userID string, metadata map[string]string) error
}

type ClientConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity: base url is required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("identity: secret key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   base,
		secretKey: cfg.SecretKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *Client) Metadata(ctx context.Context, userID string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.metadataURL(userID), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity: metadata request returned %d", resp.StatusCode)
	}

	var metadata map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("identity: invalid metadata payload: %w", err)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return metadata, nil
}

// SetMetadata replaces the user's metadata with the given mapping.
func (c *Client) SetMetadata(ctx context.Context, userID string, metadata map[string]string) error {
	body, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.metadataURL(userID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: metadata update failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("identity: metadata update returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) metadataURL(userID string) string {
	return c.baseURL + "/v1/users/" + userID + "/metadata"
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}
