package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-connector/core"
	"github.com/goliatone/go-connector/hss"
	"github.com/goliatone/go-connector/pipeline"
)

type downstreamBehavior struct {
	status int
	body   map[string]any
}

type downstreamRecorder struct {
	calls  atomic.Int64
	bodies chan map[string]any
}

func newConnector(t *testing.T, behavior downstreamBehavior) (*http.ServeMux, *downstreamRecorder) {
	t.Helper()

	recorder := &downstreamRecorder{bodies: make(chan map[string]any, 8)}
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder.calls.Add(1)
		var received map[string]any
		if err := json.NewDecoder(r.Body).Decode(&received); err == nil {
			recorder.bodies <- received
		}
		if behavior.status != 0 {
			w.WriteHeader(behavior.status)
		}
		if behavior.body != nil {
			_ = json.NewEncoder(w).Encode(behavior.body)
		}
	}))
	t.Cleanup(downstream.Close)

	cfg := core.DefaultConfig()
	cfg.Inbound.AuthToken = "inbound-secret"
	cfg.Downstream.BaseURL = downstream.URL
	cfg.Downstream.AuthToken = "downstream-secret"
	cfg.Profiles.DefaultCS = "cs-basic"
	cfg.Profiles.DefaultEPS = "eps-basic"

	client := hss.NewClient(hss.ClientConfig{
		BaseURL:   cfg.Downstream.BaseURL,
		AuthToken: cfg.Downstream.AuthToken,
	})
	processor, err := pipeline.NewProcessor(cfg, pipeline.NewTokenAuthenticator(cfg.Inbound.AuthToken), client)
	if err != nil {
		t.Fatalf("build processor: %v", err)
	}
	return NewHandler(processor).Routes(), recorder
}

func postEvent(mux *http.ServeMux, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/process-event", bytes.NewReader([]byte(body)))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	response := httptest.NewRecorder()
	mux.ServeHTTP(response, req)
	return response
}

func validEventBody() string {
	return `{
		"event_id": "evt_1",
		"data": {"event_type": "SIM/Updated"},
		"pb_data": {
			"account_info": {"id": "79123456789@msisdn", "bill_status": "open", "blocked": false},
			"sim_info": {"imsi": "001010000020349"},
			"access_policy_info": {"attributes": [
				{"name": "cs_profile", "value": "cs-gold"},
				{"name": "eps_profile", "value": "eps-gold"}
			]}
		}
	}`
}

func decodeErrorEnvelope(t *testing.T, response *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.Unmarshal(response.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %q)", err, response.Body.String())
	}
	if envelope.Message == "" || envelope.Error == "" || envelope.Type == "" {
		t.Fatalf("error envelope must carry all three fields: %+v", envelope)
	}
	return envelope
}

func TestProcessEvent_ScenarioA_ProcessedSuccessfully(t *testing.T) {
	mux, recorder := newConnector(t, downstreamBehavior{
		body: map[string]any{"success": true, "message": "applied"},
	})

	response := postEvent(mux, validEventBody(), map[string]string{
		"Authorization": "Bearer inbound-secret",
	})
	if response.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (body %s)", response.Code, response.Body.String())
	}
	var success SuccessEnvelope
	if err := json.Unmarshal(response.Body.Bytes(), &success); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if success.Message != "Event processed successfully" {
		t.Fatalf("unexpected message: %q", success.Message)
	}

	if recorder.calls.Load() != 1 {
		t.Fatalf("expected one downstream call, got %d", recorder.calls.Load())
	}
	sent := <-recorder.bodies
	if sent["imsi"] != "001010000020349" {
		t.Fatalf("unexpected imsi: %v", sent["imsi"])
	}
	if sent["subscriber_status"] != "service-granted" {
		t.Fatalf("unexpected subscriber status: %v", sent["subscriber_status"])
	}
	addresses, ok := sent["msisdn"].([]any)
	if !ok || len(addresses) != 1 || addresses[0] != "79123456789" {
		t.Fatalf("unexpected msisdn: %v", sent["msisdn"])
	}
	if sent["cs_profile"] != "cs-gold" || sent["eps_profile"] != "eps-gold" {
		t.Fatalf("unexpected profiles: %v / %v", sent["cs_profile"], sent["eps_profile"])
	}
	if sent["action"] != "update" {
		t.Fatalf("unexpected action: %v", sent["action"])
	}
}

func TestProcessEvent_ScenarioB_DownstreamUnauthorized(t *testing.T) {
	mux, _ := newConnector(t, downstreamBehavior{
		status: http.StatusUnauthorized,
		body:   map[string]any{"error": "bad downstream credential"},
	})

	response := postEvent(mux, validEventBody(), map[string]string{
		"Authorization": "Bearer inbound-secret",
	})
	if response.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body %s)", response.Code, response.Body.String())
	}
	envelope := decodeErrorEnvelope(t, response)
	if envelope.Type != core.ConnectorErrorConnection {
		t.Fatalf("expected %q type, got %q", core.ConnectorErrorConnection, envelope.Type)
	}
	if !strings.Contains(envelope.Error, "bad downstream credential") {
		t.Fatalf("expected downstream detail retained, got %q", envelope.Error)
	}
}

func TestProcessEvent_ScenarioC_MissingBearerToken(t *testing.T) {
	mux, recorder := newConnector(t, downstreamBehavior{
		body: map[string]any{"success": true},
	})

	response := postEvent(mux, validEventBody(), nil)
	if response.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", response.Code)
	}
	envelope := decodeErrorEnvelope(t, response)
	if envelope.Type != core.ConnectorErrorAuthentication {
		t.Fatalf("expected %q type, got %q", core.ConnectorErrorAuthentication, envelope.Type)
	}
	if recorder.calls.Load() != 0 {
		t.Fatalf("auth failures must not reach the downstream system")
	}
}

func TestProcessEvent_ScenarioD_UnknownEventTypeIsNoOp(t *testing.T) {
	mux, recorder := newConnector(t, downstreamBehavior{
		body: map[string]any{"success": true},
	})

	response := postEvent(mux, `{"event_id": "evt_9", "data": {"event_type": "Billing/InvoicePaid"}}`, map[string]string{
		"Authorization": "Bearer inbound-secret",
	})
	if response.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (body %s)", response.Code, response.Body.String())
	}
	var success SuccessEnvelope
	if err := json.Unmarshal(response.Body.Bytes(), &success); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if success.Message == "" {
		t.Fatalf("no-op responses still carry a message")
	}
	if recorder.calls.Load() != 0 {
		t.Fatalf("expected zero downstream calls, got %d", recorder.calls.Load())
	}
}

func TestProcessEvent_ValidationFailure(t *testing.T) {
	mux, recorder := newConnector(t, downstreamBehavior{
		body: map[string]any{"success": true},
	})

	response := postEvent(mux, `{"data": {}}`, map[string]string{
		"Authorization": "Bearer inbound-secret",
	})
	if response.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", response.Code)
	}
	envelope := decodeErrorEnvelope(t, response)
	if envelope.Type != core.ConnectorErrorValidation {
		t.Fatalf("expected %q type, got %q", core.ConnectorErrorValidation, envelope.Type)
	}
	if !strings.Contains(envelope.Error, "event_id") {
		t.Fatalf("expected field-level detail, got %q", envelope.Error)
	}
	if recorder.calls.Load() != 0 {
		t.Fatalf("validation failures must not reach the downstream system")
	}
}

func TestProcessEvent_CorrelationHeaders(t *testing.T) {
	mux, _ := newConnector(t, downstreamBehavior{
		body: map[string]any{"success": true},
	})

	response := postEvent(mux, validEventBody(), map[string]string{
		"Authorization": "Bearer inbound-secret",
		HeaderTraceID:   "trace-1",
	})
	if got := response.Header().Get(HeaderTraceID); got != "trace-1" {
		t.Fatalf("expected trace id echoed, got %q", got)
	}
	if got := response.Header().Get(HeaderRequestID); got == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestHealth(t *testing.T) {
	mux, _ := newConnector(t, downstreamBehavior{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	response := httptest.NewRecorder()
	mux.ServeHTTP(response, req)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.Code)
	}
	if !bytes.Contains(response.Body.Bytes(), []byte("ok")) {
		t.Fatalf("unexpected health body: %s", response.Body.String())
	}
}
