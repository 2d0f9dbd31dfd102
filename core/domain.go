package core

import (
	"strings"
	"time"
)

// BillStatus is the billing state carried by the upstream enrichment payload.
type BillStatus string

const (
	BillStatusOpen     BillStatus = "open"
	BillStatusInactive BillStatus = "inactive"
	BillStatusClosed   BillStatus = "closed"
)

func (s BillStatus) Valid() bool {
	switch s {
	case BillStatusOpen, BillStatusInactive, BillStatusClosed:
		return true
	default:
		return false
	}
}

// SubscriberStatus is the provisioning state sent downstream.
type SubscriberStatus string

const (
	SubscriberStatusServiceGranted SubscriberStatus = "service-granted"
	SubscriberStatusBarred         SubscriberStatus = "operator-determined-barring"
)

// Action is the provisioning operation resolved from the event type.
type Action string

const (
	ActionUpdate Action = "update"
)

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AccountInfo struct {
	ID         string     `json:"id"`
	BillStatus BillStatus `json:"bill_status"`
	Blocked    bool       `json:"blocked"`
	CustomerID string     `json:"customer_id,omitempty"`
	ProductID  string     `json:"product_id,omitempty"`
}

type SimInfo struct {
	IMSI   string `json:"imsi"`
	ICCID  string `json:"iccid,omitempty"`
	MSISDN string `json:"msisdn,omitempty"`
}

type AccessPolicyInfo struct {
	Attributes []Attribute `json:"attributes"`
}

// PBData is the optional enrichment payload attached by the upstream
// platform. Every field may be absent; derivations must tolerate nil.
type PBData struct {
	AccountInfo      *AccountInfo      `json:"account_info,omitempty"`
	SimInfo          *SimInfo          `json:"sim_info,omitempty"`
	AccessPolicyInfo *AccessPolicyInfo `json:"access_policy_info,omitempty"`
}

type EventData struct {
	EventType string         `json:"event_type"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Event is the inbound envelope pushed by the event-provisioning platform.
type Event struct {
	EventID   string     `json:"event_id"`
	HandlerID string     `json:"handler_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Data      EventData  `json:"data"`
	PBData    *PBData    `json:"pb_data,omitempty"`
}

func (e Event) AccountInfo() *AccountInfo {
	if e.PBData == nil {
		return nil
	}
	return e.PBData.AccountInfo
}

func (e Event) SimInfo() *SimInfo {
	if e.PBData == nil {
		return nil
	}
	return e.PBData.SimInfo
}

func (e Event) AccessPolicyInfo() *AccessPolicyInfo {
	if e.PBData == nil {
		return nil
	}
	return e.PBData.AccessPolicyInfo
}

// UnifiedDownstreamRequest is the outbound shape sent to the subscriber
// management system. Built fresh per event, never persisted.
type UnifiedDownstreamRequest struct {
	IMSI             string           `json:"imsi"`
	SubscriberStatus SubscriberStatus `json:"subscriber_status"`
	MSISDN           []string         `json:"msisdn"`
	CSProfile        string           `json:"cs_profile"`
	EPSProfile       string           `json:"eps_profile"`
	Action           Action           `json:"action"`
}

type OutcomeKind string

const (
	OutcomeProcessed OutcomeKind = "processed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// Outcome is the terminal result of a successfully handled event. Soft-fail
// branches (unknown event type, missing identifier, pattern mismatch) are
// expected and travel through Outcome, not through error returns.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string
	Message string
}

func Processed(message string) Outcome {
	if strings.TrimSpace(message) == "" {
		message = "Event processed successfully"
	}
	return Outcome{Kind: OutcomeProcessed, Message: message}
}

func Skipped(reason string) Outcome {
	return Outcome{
		Kind:    OutcomeSkipped,
		Reason:  strings.TrimSpace(reason),
		Message: "Event accepted without processing",
	}
}
