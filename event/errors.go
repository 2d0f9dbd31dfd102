package event

import (
	"net/http"

	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

const connectorValidationStatus = http.StatusUnprocessableEntity

func decodeMalformed(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryValidation, "event: malformed json body").
		WithCode(connectorValidationStatus).
		WithTextCode(core.ConnectorErrorValidation)
}

func decodeWrapValidation(source error, message string) error {
	if source == nil {
		return nil
	}
	return goerrors.Wrap(source, goerrors.CategoryValidation, message).
		WithCode(connectorValidationStatus).
		WithTextCode(core.ConnectorErrorValidation)
}
