// Package transport exposes the event-processing pipeline over HTTP and
// renders the uniform success and error envelopes.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-connector/core"
	"github.com/goliatone/go-connector/pipeline"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"

	maxRequestBodyBytes int64 = 1 << 20
)

// EventProcessor is the pipeline surface the handler drives.
type EventProcessor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Handler struct {
	processor EventProcessor
	logger    core.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(processor EventProcessor, options ...HandlerOption) *Handler {
	handler := &Handler{processor: processor}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(handler)
	}
	handler.logger = glog.Ensure(handler.logger)
	return handler
}

// Routes wires the inbound surface: the event endpoint and the liveness
// probe.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-event", h.ProcessEvent)
	mux.HandleFunc("GET /health", h.Health)
	return mux
}

func (h *Handler) ProcessEvent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.processor == nil {
		writeError(w, nil)
		return
	}

	traceID := strings.TrimSpace(r.Header.Get(HeaderTraceID))
	requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		correlation := core.NewCorrelation(traceID, requestID)
		setCorrelationHeaders(w, correlation)
		writeError(w, err)
		return
	}

	result, processErr := h.processor.Process(r.Context(), pipeline.Request{
		Credential: bearerCredential(r),
		Body:       body,
		TraceID:    traceID,
		RequestID:  requestID,
	})
	setCorrelationHeaders(w, result.Correlation)
	if processErr != nil {
		h.logger.Error("process event failed",
			"error", processErr.Error(),
			"trace_id", result.Correlation.TraceID,
			"request_id", result.Correlation.RequestID,
		)
		writeError(w, processErr)
		return
	}
	writeSuccess(w, http.StatusAccepted, result.Outcome.Message)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "ok")
}

func bearerCredential(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setCorrelationHeaders(w http.ResponseWriter, correlation core.Correlation) {
	if correlation.TraceID != "" {
		w.Header().Set(HeaderTraceID, correlation.TraceID)
	}
	if correlation.RequestID != "" {
		w.Header().Set(HeaderRequestID, correlation.RequestID)
	}
}
