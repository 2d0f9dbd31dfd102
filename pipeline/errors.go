package pipeline

import (
	"net/http"

	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

func pipelineAuthError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ConnectorErrorAuthentication)
}

func pipelineInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ConnectorErrorInternal)
}

func pipelineInternalWrap(source error, message string) error {
	if source == nil {
		return pipelineInternal(message)
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ConnectorErrorInternal)
}
