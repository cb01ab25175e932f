package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/motocaz/xtractor-backend/internal/identity"
)

func getPortal(h *Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/create-portal-session", nil)
	if userID != "" {
		req = req.WithContext(identity.WithUserID(req.Context(), userID))
	}
	rw := httptest.NewRecorder()
	h.CreatePortalSession(rw, req)
	return rw
}

func TestPortalRequiresAuth(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, &fakeStore{})
	if rw := getPortal(h, ""); rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
}

func TestPortalNoCustomerOnFile(t *testing.T) {
	store := &fakeStore{metadata: map[string]map[string]string{
		"user-1": {"plan": "free"},
	}}
	h := newTestHandler(&fakeProvider{}, store)

	if rw := getPortal(h, "user-1"); rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without customerId, got %d", rw.Code)
	}
}

func TestPortalUnknownUser(t *testing.T) {
	store := &fakeStore{getErr: identity.ErrNotFound}
	h := newTestHandler(&fakeProvider{}, store)

	if rw := getPortal(h, "user-9"); rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rw.Code)
	}
}

func TestPortalReturnsURL(t *testing.T) {
	store := &fakeStore{metadata: map[string]map[string]string{
		"user-1": {"customerId": "cus_1", "plan": "pro"},
	}}
	h := newTestHandler(&fakeProvider{}, store)

	rw := getPortal(h, "user-1")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["url"] != "https://portal.example.com/cus_1" {
		t.Fatalf("unexpected portal url: %q", resp["url"])
	}
}

func TestPortalProviderError(t *testing.T) {
	store := &fakeStore{metadata: map[string]map[string]string{
		"user-1": {"customerId": "cus_1"},
	}}
	provider := &fakeProvider{
		portalFn: func(string) (*billing.PortalSession, error) {
			return nil, errors.New("upstream down")
		},
	}
	h := newTestHandler(provider, store)

	if rw := getPortal(h, "user-1"); rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestTestAuthProbe(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/test-auth", nil)
	rw := httptest.NewRecorder()
	h.TestAuth(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rw.Code)
	}

	reqAuthed := httptest.NewRequest(http.MethodGet, "/test-auth", nil)
	reqAuthed = reqAuthed.WithContext(identity.WithUserID(reqAuthed.Context(), "user-1"))
	rwAuthed := httptest.NewRecorder()
	h.TestAuth(rwAuthed, reqAuthed)
	if rwAuthed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwAuthed.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rwAuthed.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["userId"] != "user-1" {
		t.Fatalf("expected caller identity echoed, got %v", resp)
	}
}
