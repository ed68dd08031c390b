// Package calllog records outbound-call events produced by the outreach
// capability family. Recording is best-effort: failures are logged and never
// affect the invocation that produced the call.
package calllog

import (
	"context"
	"time"
)

// Event is one outbound call record.
type Event struct {
	CapabilityID   string         `json:"agent_id" bson:"agent_id"`
	TenantID       string         `json:"tenant_id" bson:"tenant_id"`
	Provider       string         `json:"provider" bson:"provider"`
	CallID         string         `json:"call_id,omitempty" bson:"call_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`
	CarrierName    string         `json:"carrier_name,omitempty" bson:"carrier_name,omitempty"`
	ContactPhone   string         `json:"contact_phone,omitempty" bson:"contact_phone,omitempty"`
	LeadInfo       map[string]any `json:"lead_info,omitempty" bson:"lead_info,omitempty"`
	Status         string         `json:"status,omitempty" bson:"status,omitempty"`
	At             time.Time      `json:"at" bson:"at"`
}

// Recorder persists call events.
type Recorder interface {
	// Record stores the event. Implementations swallow their own failures;
	// the error return exists for logging and tests only.
	Record(ctx context.Context, event Event) error
}

// Disabled is a Recorder that stores nothing.
type Disabled struct{}

func (Disabled) Record(context.Context, Event) error { return nil }

// FromOutput assembles an Event from an outreach capability's output and
// original input, preferring the actually dialed number over the requested
// one.
func FromOutput(capabilityID, tenantID string, input, output map[string]any) Event {
	ev := Event{
		CapabilityID: capabilityID,
		TenantID:     tenantID,
		Provider:     "elevenlabs",
		LeadInfo:     input,
		At:           time.Now().UTC(),
	}
	if output != nil {
		ev.CallID, _ = output["call_id"].(string)
		ev.ConversationID, _ = output["conversation_id"].(string)
		if ev.ConversationID == "" {
			ev.ConversationID, _ = output["elevenlabs_conversation_id"].(string)
		}
		ev.CarrierName, _ = output["carrier_name"].(string)
		ev.Status, _ = output["call_status"].(string)
		ev.ContactPhone, _ = output["carrier_phone"].(string)
	}
	if ev.ContactPhone == "" && input != nil {
		if v, ok := input["contact_phone"].(string); ok {
			ev.ContactPhone = v
		} else if v, ok := input["carrier_phone"].(string); ok {
			ev.ContactPhone = v
		}
	}
	return ev
}
