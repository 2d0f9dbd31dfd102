// Package pipeline sequences the event-processing stages: authentication,
// decoding, action resolution, field extraction, and downstream dispatch.
// Soft-fail branches resolve to accepted no-op outcomes; only hard failures
// return errors.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/goliatone/go-connector/actions"
	"github.com/goliatone/go-connector/core"
	"github.com/goliatone/go-connector/event"
	"github.com/goliatone/go-connector/extract"
	"github.com/goliatone/go-connector/hss"
	glog "github.com/goliatone/go-logger/glog"
)

// Dispatcher issues the provisioning call against the downstream system.
type Dispatcher interface {
	Send(ctx context.Context, req core.UnifiedDownstreamRequest) (hss.Result, error)
}

// Request is the authenticated surface of one inbound call.
type Request struct {
	Credential string
	Body       []byte
	TraceID    string
	RequestID  string
}

// Result is the terminal state of a handled request. A nil error from
// Process means accepted: either processed or an expected no-op.
type Result struct {
	Outcome     core.Outcome
	Correlation core.Correlation
}

type Processor struct {
	auth       Authenticator
	dispatcher Dispatcher
	logger     core.Logger
	metrics    core.MetricsRecorder
	config     core.Config
	pattern    *regexp.Regexp
	now        func() time.Time
}

type Option func(*Processor)

func WithLogger(logger core.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(p *Processor) {
		p.metrics = recorder
	}
}

func WithNow(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

func NewProcessor(cfg core.Config, auth Authenticator, dispatcher Dispatcher, options ...Option) (*Processor, error) {
	if auth == nil {
		return nil, pipelineInternal("pipeline: authenticator is required")
	}
	if dispatcher == nil {
		return nil, pipelineInternal("pipeline: dispatcher is required")
	}
	pattern, err := cfg.Identifier.Compile()
	if err != nil {
		return nil, pipelineInternalWrap(err, "pipeline: compile identifier pattern")
	}

	processor := &Processor{
		auth:       auth,
		dispatcher: dispatcher,
		metrics:    core.NopMetricsRecorder{},
		config:     cfg,
		pattern:    pattern,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(processor)
	}
	processor.logger = glog.Ensure(processor.logger)
	if processor.metrics == nil {
		processor.metrics = core.NopMetricsRecorder{}
	}
	return processor, nil
}

// Process walks one request through the pipeline. Any panic below this
// boundary is reported as an internal error, never as a framework fault.
func (p *Processor) Process(ctx context.Context, req Request) (result Result, err error) {
	if p == nil {
		return Result{}, pipelineInternal("pipeline: processor is nil")
	}
	ctx, correlation := core.EnsureCorrelation(ctx, req.TraceID, req.RequestID)
	result.Correlation = correlation
	startedAt := p.now()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = pipelineInternal(fmt.Sprintf("pipeline: unexpected fault: %v", recovered))
			p.logError(ctx, "event processing panicked", map[string]any{"panic": fmt.Sprint(recovered)})
		}
		p.observe(ctx, startedAt, result, err)
	}()

	if err := p.auth.Verify(ctx, req.Credential); err != nil {
		p.logError(ctx, "inbound authentication failed", nil)
		return result, err
	}

	evt, err := event.Decode(req.Body)
	if err != nil {
		p.logError(ctx, "event validation failed", map[string]any{"error": err.Error()})
		return result, err
	}
	eventFields := map[string]any{
		"event_id":   evt.EventID,
		"event_type": evt.Data.EventType,
	}

	action, ok := actions.Resolve(evt.Data.EventType)
	if !ok {
		p.logInfo(ctx, "no action mapped for event type, skipping", eventFields)
		result.Outcome = core.Skipped("no action mapped for event type " + evt.Data.EventType)
		return result, nil
	}

	imsi := extract.IMSI(evt)
	if imsi == "" {
		p.logInfo(ctx, "event carries no imsi, skipping", eventFields)
		result.Outcome = core.Skipped("event carries no imsi")
		return result, nil
	}
	if !extract.MatchIdentifier(imsi, p.pattern) {
		p.logInfo(ctx, "imsi does not match the configured pattern, skipping", eventFields)
		result.Outcome = core.Skipped("imsi does not match the configured pattern")
		return result, nil
	}

	downstreamReq := p.BuildDownstreamRequest(ctx, evt, imsi, action)

	if _, err := p.dispatcher.Send(ctx, downstreamReq); err != nil {
		fields := cloneFields(eventFields)
		fields["error"] = err.Error()
		fields["transient"] = core.IsTransient(err)
		p.logError(ctx, "downstream dispatch failed", fields)
		return result, err
	}

	p.logInfo(ctx, "event processed", eventFields)
	result.Outcome = core.Processed("")
	return result, nil
}

// BuildDownstreamRequest derives the unified outbound shape from the event.
// The derivation is deterministic: the same event always yields the same
// request body.
func (p *Processor) BuildDownstreamRequest(
	ctx context.Context,
	evt core.Event,
	imsi string,
	action core.Action,
) core.UnifiedDownstreamRequest {
	account := evt.AccountInfo()
	policy := evt.AccessPolicyInfo()

	csProfile, csDefaulted := extract.ProfileValue(policy, "cs_profile", p.config.Profiles.DefaultCS)
	epsProfile, epsDefaulted := extract.ProfileValue(policy, "eps_profile", p.config.Profiles.DefaultEPS)
	if csDefaulted {
		p.logInfo(ctx, "cs profile not present in access policy, applying default", map[string]any{
			"event_id": evt.EventID,
			"profile":  csProfile,
		})
	}
	if epsDefaulted {
		p.logInfo(ctx, "eps profile not present in access policy, applying default", map[string]any{
			"event_id": evt.EventID,
			"profile":  epsProfile,
		})
	}

	return core.UnifiedDownstreamRequest{
		IMSI:             imsi,
		SubscriberStatus: extract.SubscriberStatus(account),
		MSISDN:           extract.MSISDNList(account),
		CSProfile:        csProfile,
		EPSProfile:       epsProfile,
		Action:           action,
	}
}

func (p *Processor) observe(ctx context.Context, startedAt time.Time, result Result, err error) {
	status := "accepted"
	switch {
	case err != nil:
		status = "failed"
	case result.Outcome.Kind == core.OutcomeSkipped:
		status = "skipped"
	}
	tags := map[string]string{"status": status}
	elapsed := p.now().Sub(startedAt)
	p.metrics.IncCounter(ctx, "connector.process_event.total", 1, tags)
	p.metrics.ObserveHistogram(ctx, "connector.process_event.duration_ms", float64(elapsed.Milliseconds()), tags)
}

func (p *Processor) logInfo(ctx context.Context, message string, fields map[string]any) {
	p.logWithLevel(ctx, "info", message, fields)
}

func (p *Processor) logError(ctx context.Context, message string, fields map[string]any) {
	p.logWithLevel(ctx, "error", message, fields)
}

func (p *Processor) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if p == nil || p.logger == nil {
		return
	}
	fields = cloneFields(fields)
	if correlation, ok := core.CorrelationFromContext(ctx); ok {
		for key, value := range correlation.Fields() {
			fields[key] = value
		}
	}

	logger := p.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
