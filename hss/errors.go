package hss

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

// Downstream failures are surfaced to the caller as unprocessable rather
// than mirrored status codes, so an upstream 401 is never mistaken for an
// inbound authentication failure.
const downstreamFailureStatus = http.StatusUnprocessableEntity

func hssInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ConnectorErrorInternal)
}

func hssInternalWrap(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ConnectorErrorInternal)
}

func hssAuthRejected(status int, detail string) error {
	return goerrors.New(
		fmt.Sprintf("hss: downstream rejected credential (status %d): %s", status, detail),
		goerrors.CategoryExternal,
	).
		WithCode(downstreamFailureStatus).
		WithTextCode(core.ConnectorErrorConnection).
		WithMetadata(map[string]any{
			"downstream_status": status,
			"downstream_error":  "authentication",
			"detail":            detail,
			"transient":         false,
		})
}

func hssRateLimited(status int, detail string) error {
	return goerrors.New(
		fmt.Sprintf("hss: downstream rate limited (status %d): %s", status, detail),
		goerrors.CategoryRateLimit,
	).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ConnectorErrorRateLimit).
		WithMetadata(map[string]any{
			"downstream_status": status,
			"detail":            detail,
			"transient":         true,
		})
}

func hssConnectionError(message string, status int, detail string, transient bool) error {
	metadata := map[string]any{
		"detail":    detail,
		"transient": transient,
	}
	if status > 0 {
		metadata["downstream_status"] = status
	}
	return goerrors.New(fmt.Sprintf("%s: %s", message, detail), goerrors.CategoryExternal).
		WithCode(downstreamFailureStatus).
		WithTextCode(core.ConnectorErrorConnection).
		WithMetadata(metadata)
}

func hssServiceError(status int, detail string) error {
	return goerrors.New(
		fmt.Sprintf("hss: downstream reported failure (status %d): %s", status, detail),
		goerrors.CategoryExternal,
	).
		WithCode(downstreamFailureStatus).
		WithTextCode(core.ConnectorErrorService).
		WithMetadata(map[string]any{
			"downstream_status": status,
			"detail":            detail,
			"transient":         false,
		})
}
