package hss

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

func sampleRequest() core.UnifiedDownstreamRequest {
	return core.UnifiedDownstreamRequest{
		IMSI:             "001010000020349",
		SubscriberStatus: core.SubscriberStatusServiceGranted,
		MSISDN:           []string{"79123456789"},
		CSProfile:        "cs-basic",
		EPSProfile:       "eps-basic",
		Action:           core.ActionUpdate,
	}
}

func TestClient_SendsExpectedRequestShape(t *testing.T) {
	var receivedPath string
	var receivedAuth string
	var receivedContentType string
	var receivedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedAuth = r.Header.Get("Authorization")
		receivedContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&receivedBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "applied"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "downstream-secret"})
	result, err := client.Send(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("send provision request: %v", err)
	}
	if result.Message != "applied" {
		t.Fatalf("unexpected passthrough message: %q", result.Message)
	}

	if receivedPath != provisionRequestPath {
		t.Fatalf("unexpected path: %q", receivedPath)
	}
	if receivedAuth != "Bearer downstream-secret" {
		t.Fatalf("unexpected authorization header: %q", receivedAuth)
	}
	if receivedContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", receivedContentType)
	}
	if receivedBody["imsi"] != "001010000020349" {
		t.Fatalf("unexpected imsi: %v", receivedBody["imsi"])
	}
	if receivedBody["subscriber_status"] != "service-granted" {
		t.Fatalf("unexpected subscriber status: %v", receivedBody["subscriber_status"])
	}
	if receivedBody["action"] != "update" {
		t.Fatalf("unexpected action: %v", receivedBody["action"])
	}
	addresses, ok := receivedBody["msisdn"].([]any)
	if !ok || len(addresses) != 1 || addresses[0] != "79123456789" {
		t.Fatalf("unexpected msisdn list: %v", receivedBody["msisdn"])
	}
}

func TestClient_BusinessFailureInsideSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "subscriber unknown"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	rich := assertRichError(t, err, goerrors.CategoryExternal, core.ConnectorErrorService)
	if !strings.Contains(rich.Message, "subscriber unknown") {
		t.Fatalf("expected downstream detail retained, got %q", rich.Message)
	}
	if core.IsTransient(err) {
		t.Fatalf("business failures are permanent")
	}
}

func TestClient_MissingSuccessFlagIsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok-ish"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	assertRichError(t, err, goerrors.CategoryExternal, core.ConnectorErrorService)
}

func TestClient_UnauthorizedClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad credential"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	rich := assertRichError(t, err, goerrors.CategoryExternal, core.ConnectorErrorConnection)
	if rich.Code != http.StatusUnprocessableEntity {
		t.Fatalf("downstream 401 must not surface as 401, got %d", rich.Code)
	}
	if rich.Metadata["downstream_status"] != http.StatusUnauthorized {
		t.Fatalf("expected downstream status retained, got %v", rich.Metadata["downstream_status"])
	}
	if core.IsTransient(err) {
		t.Fatalf("credential rejections are permanent")
	}
}

func TestClient_RateLimitClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	rich := assertRichError(t, err, goerrors.CategoryRateLimit, core.ConnectorErrorRateLimit)
	if rich.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 passthrough, got %d", rich.Code)
	}
	if !core.IsTransient(err) {
		t.Fatalf("rate limits are transient")
	}
}

func TestClient_ServerErrorIsTransientConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	assertRichError(t, err, goerrors.CategoryExternal, core.ConnectorErrorConnection)
	if !core.IsTransient(err) {
		t.Fatalf("5xx failures are transient")
	}
}

func TestClient_TimeoutIsTransientConnectionError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientConfig{
		BaseURL:        server.URL,
		AuthToken:      "token",
		RequestTimeout: 50 * time.Millisecond,
		HTTPClient:     server.Client(),
	})
	_, err := client.Send(context.Background(), sampleRequest())
	assertRichError(t, err, goerrors.CategoryExternal, core.ConnectorErrorConnection)
	if !core.IsTransient(err) {
		t.Fatalf("timeouts are transient")
	}
}

func TestClient_RelativeBaseURLRejected(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "hss.internal", AuthToken: "token"})
	_, err := client.Send(context.Background(), sampleRequest())
	assertRichError(t, err, goerrors.CategoryInternal, core.ConnectorErrorInternal)
}

func assertRichError(t *testing.T, err error, category goerrors.Category, textCode string) *goerrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected classified error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != category {
		t.Fatalf("expected %q category, got %q", category, rich.Category)
	}
	if rich.TextCode != textCode {
		t.Fatalf("expected %q text code, got %q", textCode, rich.TextCode)
	}
	return rich
}
