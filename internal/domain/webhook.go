package domain

import (
	"bytes"
	"encoding/json"
)

// Webhook event kinds sent by NetBox.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// WebhookEnvelope is the JSON body NetBox POSTs for an object change.
type WebhookEnvelope struct {
	Event     string          `json:"event" validate:"required,oneof=created updated deleted"`
	Model     string          `json:"model,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Username  string          `json:"username,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data" validate:"required"`
	Snapshots json.RawMessage `json:"snapshots,omitempty"`
}

// InterfaceData is the subset of an interface webhook payload we act on. The
// rest of the object is re-read from NetBox.
type InterfaceData struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// AddressFamily mirrors NetBox's {"value": 4, "label": "IPv4"} family field.
type AddressFamily struct {
	Value int    `json:"value" validate:"required,oneof=4 6"`
	Label string `json:"label,omitempty"`
}

// AddressData is the subset of an IP address webhook payload we act on.
type AddressData struct {
	ID               int64         `json:"id,omitempty"`
	Address          string        `json:"address" validate:"required,cidr"`
	Family           AddressFamily `json:"family"`
	AssignedObjectID *int64        `json:"assigned_object_id,omitempty"`

	// AssignedObjectType is empty or AssignedTypeInterface for device
	// interfaces; VM interfaces and FHRP groups share the id space.
	AssignedObjectType string `json:"assigned_object_type,omitempty"`
}

// AssignedTypeInterface is the NetBox object type of a device interface.
const AssignedTypeInterface = "dcim.interface"

// IsDeviceInterface reports whether an assignment of type t refers to a
// device interface. Payloads without a type are taken to be.
func IsDeviceInterface(t string) bool {
	return t == "" || t == AssignedTypeInterface
}

// PriorAssignment extracts snapshots.prechange.assigned_object_id. Anything
// missing, null or malformed along the way means there was no prior
// assignment.
func PriorAssignment(snapshots json.RawMessage) (int64, bool) {
	if len(bytes.TrimSpace(snapshots)) == 0 {
		return 0, false
	}
	var s struct {
		Prechange *struct {
			AssignedObjectID   *int64 `json:"assigned_object_id"`
			AssignedObjectType string `json:"assigned_object_type"`
		} `json:"prechange"`
	}
	if err := json.Unmarshal(snapshots, &s); err != nil {
		return 0, false
	}
	if s.Prechange == nil || s.Prechange.AssignedObjectID == nil {
		return 0, false
	}
	if !IsDeviceInterface(s.Prechange.AssignedObjectType) {
		return 0, false
	}
	return *s.Prechange.AssignedObjectID, true
}
