// Package event decodes and validates the inbound provisioning event
// envelope.
package event

import (
	"bytes"
	"encoding/json"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

// Decode parses the inbound request body into the event envelope and runs
// the structural checks that must pass before any business logic sees the
// event. Violations are reported per field path.
func Decode(body []byte) (core.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Event{}, decodeValidationFailure(validation.Errors{
			"body": validation.NewError("validation_required", "request body is required"),
		})
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	var evt core.Event
	if err := decoder.Decode(&evt); err != nil {
		return core.Event{}, decodeMalformed(err)
	}

	if err := validate(evt); err != nil {
		violations, ok := err.(validation.Errors)
		if !ok {
			return core.Event{}, decodeWrapValidation(err, "event: validation failed")
		}
		return core.Event{}, decodeValidationFailure(violations)
	}
	return evt, nil
}

func validate(evt core.Event) error {
	checks := validation.Errors{
		"event_id":        validation.Validate(evt.EventID, validation.Required),
		"data.event_type": validation.Validate(evt.Data.EventType, validation.Required),
	}
	if account := evt.AccountInfo(); account != nil {
		checks["pb_data.account_info.bill_status"] = validation.Validate(
			string(account.BillStatus),
			validation.Required,
			validation.In(
				string(core.BillStatusOpen),
				string(core.BillStatusInactive),
				string(core.BillStatusClosed),
			),
		)
	}
	return checks.Filter()
}

func decodeValidationFailure(violations validation.Errors) error {
	paths := make([]string, 0, len(violations))
	for path := range violations {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fields := make([]goerrors.FieldError, 0, len(paths))
	for _, path := range paths {
		fields = append(fields, goerrors.FieldError{
			Field:   path,
			Message: violations[path].Error(),
		})
	}
	return goerrors.NewValidation("event: validation failed", fields...).
		WithCode(connectorValidationStatus).
		WithTextCode(core.ConnectorErrorValidation)
}
