// Package hss is the client for the downstream subscriber-management
// system. It issues one provisioning call per fully-resolved event and
// classifies every failure into a typed error the pipeline can surface.
package hss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-connector/core"
)

const (
	defaultRequestTimeout    = 30 * time.Second
	maxResponseBodyBytes     = 1 << 20
	provisionRequestPath     = "/subscribers/provision"
	defaultFailureDetailText = "downstream provisioning failed"
)

type ClientConfig struct {
	BaseURL        string
	AuthToken      string
	RequestTimeout time.Duration
	HTTPClient     core.HTTPDoer
}

type Client struct {
	config     ClientConfig
	httpClient core.HTTPDoer
}

// Result is the downstream acceptance. Message carries the passthrough
// detail reported by the downstream system, when any.
type Result struct {
	Message string
}

type provisionResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		config: ClientConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			AuthToken:      strings.TrimSpace(cfg.AuthToken),
			RequestTimeout: timeout,
		},
		httpClient: httpClient,
	}
}

// Send issues the provisioning call. The update is a state-syncing write
// keyed by the identifier, so redelivery of the same event is safe to
// re-apply; the client never retries on its own.
func (c *Client) Send(ctx context.Context, req core.UnifiedDownstreamRequest) (Result, error) {
	if c == nil || c.httpClient == nil {
		return Result{}, hssInternal("hss: client is not configured")
	}
	endpoint, err := c.provisionURL()
	if err != nil {
		return Result{}, hssInternalWrap(err, "hss: resolve provision endpoint")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, hssInternalWrap(err, "hss: encode provision request")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, hssInternalWrap(err, "hss: build provision request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return Result{}, hssConnectionError("hss: provision call timed out", 0, err.Error(), true)
		}
		return Result{}, hssConnectionError("hss: provision call failed", 0, err.Error(), true)
	}
	defer response.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes))
	if readErr != nil {
		return Result{}, hssConnectionError("hss: read provision response", response.StatusCode, readErr.Error(), true)
	}

	payload := provisionResponse{}
	if len(bytes.TrimSpace(raw)) > 0 {
		// A non-JSON body is kept verbatim as the failure detail.
		_ = json.Unmarshal(raw, &payload)
	}
	detail := failureDetail(payload, raw)

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return Result{}, hssAuthRejected(response.StatusCode, detail)
	case response.StatusCode == http.StatusTooManyRequests:
		return Result{}, hssRateLimited(response.StatusCode, detail)
	case response.StatusCode >= http.StatusInternalServerError:
		return Result{}, hssConnectionError("hss: downstream unavailable", response.StatusCode, detail, true)
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return Result{}, hssServiceError(response.StatusCode, detail)
	}

	// HTTP success does not imply business success: the body must carry an
	// explicit success flag.
	if payload.Success == nil || !*payload.Success {
		return Result{}, hssServiceError(response.StatusCode, detail)
	}
	return Result{Message: strings.TrimSpace(payload.Message)}, nil
}

func (c *Client) provisionURL() (string, error) {
	parsed, err := url.Parse(c.config.BaseURL + provisionRequestPath)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("hss: base url must be absolute")
	}
	return parsed.String(), nil
}

func failureDetail(payload provisionResponse, raw []byte) string {
	if detail := strings.TrimSpace(payload.Error); detail != "" {
		return detail
	}
	if detail := strings.TrimSpace(payload.Message); detail != "" {
		return detail
	}
	if detail := strings.TrimSpace(string(raw)); detail != "" {
		return detail
	}
	return defaultFailureDetailText
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
