package domain

import (
	"fmt"
	"net"
	"net/netip"
)

// Address families as NetBox reports them.
const (
	FamilyIPv4 = 4
	FamilyIPv6 = 6
)

// AddressEvent is one IP address change resolved from a webhook.
type AddressEvent struct {
	Event   string
	Address string // CIDR as stored in NetBox
	Family  int

	// AssignedInterfaceID is the object the address is assigned to now, of
	// type AssignedType.
	AssignedInterfaceID *int64
	AssignedType        string
	// PriorInterfaceID comes from the prechange snapshot of an update.
	PriorInterfaceID *int64
}

// NewAddressEvent builds an AddressEvent from a decoded envelope.
func NewAddressEvent(env *WebhookEnvelope, data *AddressData) AddressEvent {
	ev := AddressEvent{
		Event:               env.Event,
		Address:             data.Address,
		Family:              data.Family.Value,
		AssignedInterfaceID: data.AssignedObjectID,
		AssignedType:        data.AssignedObjectType,
	}
	if prior, ok := PriorAssignment(env.Snapshots); ok {
		ev.PriorInterfaceID = &prior
	}
	return ev
}

// IPv4Primary splits an IPv4 CIDR into the dotted address and netmask that
// IOS-XE expects for a primary address.
func IPv4Primary(cidr string) (address, mask string, err error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", cidr, ErrInvalidInput)
	}
	if !prefix.Addr().Is4() {
		return "", "", fmt.Errorf("%q is not an IPv4 prefix: %w", cidr, ErrInvalidInput)
	}
	m := net.CIDRMask(prefix.Bits(), 32)
	return prefix.Addr().String(), net.IP(m).String(), nil
}
