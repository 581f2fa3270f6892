package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/observability"
	"healthcost-actions/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, limiter *observability.RateLimiter) http.Handler {
	t.Helper()
	observability.Logger = zap.NewNop()
	if err := action.InitMetrics(); err != nil {
		t.Fatalf("initializing action metrics: %v", err)
	}
	return NewRouter(action.NewDispatcher(zap.NewNop(), action.Options{}), limiter)
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterInvokeReturnsEnvelopeWithRequestID(t *testing.T) {
	router := newTestRouter(t, nil)

	body := []byte(`{
		"actionGroup": "cost-tools",
		"apiPath": "/calculateCoinsurance",
		"httpMethod": "POST",
		"requestBody": {"content": {"application/json": {"properties": [
			{"name": "amount", "type": "string", "value": "500"},
			{"name": "coinsurance_percent", "type": "string", "value": "20"}
		]}}}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/actions/invoke", bytes.NewReader(body))
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	requestID := w.Result().Header.Get("X-Request-ID")
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
	}

	var envelope action.Response
	testutil.DecodeJSONBody(t, w.Body, &envelope)

	if envelope.MessageVersion != "1.0" {
		t.Fatalf("expected messageVersion 1.0, got %q", envelope.MessageVersion)
	}
	if envelope.Response.ActionGroup != "cost-tools" {
		t.Fatalf("expected actionGroup echoed, got %q", envelope.Response.ActionGroup)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(envelope.Body()), &result); err != nil {
		t.Fatalf("decoding embedded body: %v", err)
	}
	if got, ok := result["coinsurance_amount"].(float64); !ok || got != 100 {
		t.Fatalf("expected coinsurance_amount 100, got %#v", result["coinsurance_amount"])
	}
}

func TestNewRouterInvokeRejectsNonJSON(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/invoke", bytes.NewReader([]byte("not json")))
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestNewRouterOperationShortcut(t *testing.T) {
	router := newTestRouter(t, nil)

	body := []byte(`{"hospital_prices": {"A": 1200, "B": 950, "C": 1100}}`)
	req := httptest.NewRequest(http.MethodPost, "/actions/comparePrices", bytes.NewReader(body))
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var result map[string]any
	testutil.DecodeJSONBody(t, w.Body, &result)

	if result["lowest_price_hospital"] != "B" {
		t.Fatalf("expected lowest hospital B, got %#v", result["lowest_price_hospital"])
	}
	if result["potential_savings"] != 250.0 {
		t.Fatalf("expected savings 250, got %#v", result["potential_savings"])
	}
}

func TestNewRouterServesOpenAPI(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/actions/openapi.json", nil)
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var doc map[string]any
	testutil.DecodeJSONBody(t, w.Body, &doc)
	if _, ok := doc["paths"].(map[string]any); !ok {
		t.Fatalf("expected paths object in OpenAPI document, got %#v", doc["paths"])
	}
}

func TestNewRouterRateLimitsActions(t *testing.T) {
	router := newTestRouter(t, observability.NewRateLimiter(1, 1, time.Minute))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/actions/calculateCoinsurance", bytes.NewReader([]byte(`{"amount":"10"}`)))
		req.RemoteAddr = "203.0.113.9:4000"
		return testutil.ExecuteRequest(req, router).Code
	}

	testutil.CheckResponseCode(t, http.StatusOK, send())
	testutil.CheckResponseCode(t, http.StatusTooManyRequests, send())

	// health is outside the limited group
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	testutil.CheckResponseCode(t, http.StatusOK, testutil.ExecuteRequest(req, router).Code)
}
