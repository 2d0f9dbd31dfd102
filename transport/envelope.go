package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

// SuccessEnvelope is the message-only body carried by every 2xx response.
type SuccessEnvelope struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the uniform three-field body carried by every non-2xx
// response. Type is one of the connector error kinds.
type ErrorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Type    string `json:"type"`
}

func writeSuccess(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	mapped := core.ConnectorErrorMapper(err)
	if mapped == nil {
		mapped = core.ConnectorErrorMapper(
			goerrors.New("transport: missing error", goerrors.CategoryInternal),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(mapped.Code)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Message: envelopeMessage(mapped),
		Error:   envelopeDetail(mapped),
		Type:    mapped.TextCode,
	})
}

func envelopeMessage(err *goerrors.Error) string {
	switch err.TextCode {
	case core.ConnectorErrorAuthentication:
		return "Authentication failed"
	case core.ConnectorErrorValidation:
		return "Event validation failed"
	case core.ConnectorErrorRateLimit:
		return "Downstream rate limit exceeded"
	case core.ConnectorErrorConnection, core.ConnectorErrorService:
		return "Downstream provisioning failed"
	default:
		return "An unexpected error occurred"
	}
}

func envelopeDetail(err *goerrors.Error) string {
	if violations := err.AllValidationErrors(); len(violations) > 0 {
		parts := make([]string, 0, len(violations))
		for _, violation := range violations {
			parts = append(parts, violation.Field+": "+violation.Message)
		}
		return strings.Join(parts, "; ")
	}
	if err.Metadata != nil {
		if detail, ok := err.Metadata["detail"].(string); ok && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
	}
	return err.Message
}
