// Package actions maps upstream event types onto provisioning actions. The
// table is fixed per deployment; event types outside it are expected and are
// answered as accepted no-ops by the pipeline.
package actions

import (
	"strings"

	"github.com/goliatone/go-connector/core"
)

var table = map[string]core.Action{
	"SIM/Updated": core.ActionUpdate,
	"SIM/Created": core.ActionUpdate,
	"SIM/Blocked": core.ActionUpdate,
}

// Resolve returns the provisioning action for an event type. The second
// return is false for event types the connector does not care about.
func Resolve(eventType string) (core.Action, bool) {
	action, ok := table[strings.TrimSpace(eventType)]
	return action, ok
}

// Known lists the mapped event types in no particular order.
func Known() []string {
	known := make([]string, 0, len(table))
	for eventType := range table {
		known = append(known, eventType)
	}
	return known
}
