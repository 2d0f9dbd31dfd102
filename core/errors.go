package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConnectorErrorAuthentication = "AUTHENTICATION_ERROR"
	ConnectorErrorValidation     = "VALIDATION_ERROR"
	ConnectorErrorRateLimit      = "RATE_LIMIT_ERROR"
	ConnectorErrorConnection     = "CONNECTION_ERROR"
	ConnectorErrorService        = "SERVICE_ERROR"
	ConnectorErrorInternal       = "INTERNAL_ERROR"
)

// ConnectorErrorMapper upgrades any error into a rich envelope carrying a
// connector text code and an HTTP status, so every failure renders the same
// three-field wire shape.
func ConnectorErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConnectorErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureConnectorErrorEnvelope(mapped)
}

func ensureConnectorErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectorHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConnectorTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultConnectorTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ConnectorErrorValidation
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ConnectorErrorAuthentication
	case goerrors.CategoryRateLimit:
		return ConnectorErrorRateLimit
	case goerrors.CategoryExternal:
		return ConnectorErrorService
	default:
		return ConnectorErrorInternal
	}
}

func connectorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsTransient reports whether a classified downstream failure is worth a
// redelivery attempt by the upstream platform.
func IsTransient(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	if richErr.Category == goerrors.CategoryRateLimit {
		return true
	}
	if richErr.Metadata == nil {
		return false
	}
	transient, ok := richErr.Metadata["transient"].(bool)
	return ok && transient
}
