package domain

import (
	"fmt"
	"net/netip"
	"strings"
)

// DefaultMTU is pushed when NetBox carries no MTU for an interface.
const DefaultMTU = 1500

// Device is the owning device of an interface. RESTCONF requests are sent to
// the address part of PrimaryIP.
type Device struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PrimaryIP string `json:"primary_ip"` // CIDR, e.g. 192.0.2.10/24
}

// ManagementAddr returns the device's management address with the prefix
// length stripped.
func (d Device) ManagementAddr() (netip.Addr, error) {
	if d.PrimaryIP == "" {
		return netip.Addr{}, fmt.Errorf("device %q: %w", d.Name, ErrNoManagement)
	}
	if strings.Contains(d.PrimaryIP, "/") {
		prefix, err := netip.ParsePrefix(d.PrimaryIP)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("device %q primary IP %q: %w", d.Name, d.PrimaryIP, err)
		}
		return prefix.Addr(), nil
	}
	addr, err := netip.ParseAddr(d.PrimaryIP)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("device %q primary IP %q: %w", d.Name, d.PrimaryIP, err)
	}
	return addr, nil
}

// Interface is the desired state of a device interface as recorded in NetBox.
// Optional attributes are pointers; nil means "not set in NetBox".
type Interface struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Enabled     bool    `json:"enabled"`
	Description *string `json:"description,omitempty"`
	MTU         *int    `json:"mtu,omitempty"`
	MgmtOnly    bool    `json:"mgmt_only"`
	Device      Device  `json:"device"`
}

// DesiredDescription returns the description to configure and whether one is
// set at all. An empty string counts as unset.
func (i *Interface) DesiredDescription() (string, bool) {
	if i.Description == nil || *i.Description == "" {
		return "", false
	}
	return *i.Description, true
}

// DesiredMTU returns the MTU to configure, falling back to DefaultMTU.
func (i *Interface) DesiredMTU() int {
	if i.MTU == nil || *i.MTU == 0 {
		return DefaultMTU
	}
	return *i.MTU
}
