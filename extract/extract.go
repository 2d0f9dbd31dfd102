// Package extract derives downstream provisioning fields from the inbound
// event envelope. Every derivation tolerates missing enrichment structure
// and returns an empty value instead of failing.
package extract

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-connector/core"
)

// msisdnSuffixMarker tags account identifiers that carry a phone-number
// address, e.g. "79123456789@msisdn".
const msisdnSuffixMarker = "@msisdn"

// IMSI reads the subscriber identity from the enrichment payload. An empty
// result means the event is semantically empty for provisioning purposes.
func IMSI(evt core.Event) string {
	sim := evt.SimInfo()
	if sim == nil {
		return ""
	}
	return strings.TrimSpace(sim.IMSI)
}

// MatchIdentifier applies the configured identifier gate. A nil pattern
// accepts everything.
func MatchIdentifier(imsi string, pattern *regexp.Regexp) bool {
	if pattern == nil {
		return true
	}
	return pattern.MatchString(imsi)
}

// SubscriberStatus classifies the account into the downstream service
// state. Anything other than an unblocked open account collapses to
// operator-determined barring.
func SubscriberStatus(account *core.AccountInfo) core.SubscriberStatus {
	if account == nil {
		return core.SubscriberStatusBarred
	}
	if !account.Blocked && account.BillStatus == core.BillStatusOpen {
		return core.SubscriberStatusServiceGranted
	}
	return core.SubscriberStatusBarred
}

// MSISDNList derives the address list from the account identifier. The
// billing state drives a three-way policy: open provisions the number,
// inactive and closed both clear it. Inactive is a distinct transitional
// state and must not be folded into a plain "not open" check.
func MSISDNList(account *core.AccountInfo) []string {
	if account == nil {
		return []string{}
	}
	switch account.BillStatus {
	case core.BillStatusOpen:
		address := stripSuffixMarker(account.ID)
		if address == "" {
			return []string{}
		}
		return []string{address}
	case core.BillStatusInactive:
		return []string{}
	case core.BillStatusClosed:
		return []string{}
	default:
		return []string{}
	}
}

// ProfileValue scans the ordered access-policy attribute list for a named
// profile. The second return reports whether the configured default was
// applied, so the caller can log the fallback.
func ProfileValue(policy *core.AccessPolicyInfo, name string, defaultValue string) (string, bool) {
	if policy == nil {
		return defaultValue, true
	}
	for _, attribute := range policy.Attributes {
		if attribute.Name != name {
			continue
		}
		value := strings.TrimSpace(attribute.Value)
		if value == "" {
			continue
		}
		return value, false
	}
	return defaultValue, true
}

func stripSuffixMarker(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if index := strings.Index(id, "@"); index >= 0 {
		if strings.EqualFold(id[index:], msisdnSuffixMarker) {
			return id[:index]
		}
		return id[:index]
	}
	return id
}
