package restconf

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
)

const nativeInterfacePath = "/restconf/data/Cisco-IOS-XE-native:native/interface/"

// Endpoint describes how devices are reached. The zero Port means the
// scheme's default.
type Endpoint struct {
	Scheme string
	Port   int
}

// Target is the RESTCONF URL prefix for one interface on one device. It is
// built per event and passed explicitly to every operation.
type Target struct {
	base string
}

// Target builds the reconciliation target for iface.
func (e Endpoint) Target(iface *domain.Interface) (Target, error) {
	typ, id, err := ParseInterfaceName(iface.Name)
	if err != nil {
		return Target{}, err
	}
	addr, err := iface.Device.ManagementAddr()
	if err != nil {
		return Target{}, err
	}

	scheme := e.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := addr.String()
	if e.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(e.Port))
	} else if addr.Is6() {
		host = "[" + host + "]"
	}

	return Target{
		base: fmt.Sprintf("%s://%s%s%s=%s", scheme, host, nativeInterfacePath, typ, url.PathEscape(id)),
	}, nil
}

// String returns the interface base URL.
func (t Target) String() string { return t.base }

// Shutdown is the shutdown marker resource.
func (t Target) Shutdown() string { return t.base + "/shutdown" }

// Description is the description leaf.
func (t Target) Description() string { return t.base + "/description" }

// MTU is the interface MTU leaf.
func (t Target) MTU() string { return t.base + "/mtu" }

// PrimaryIPv4 is the single primary IPv4 address container.
func (t Target) PrimaryIPv4() string { return t.base + "/ip/address/primary" }

// IPv6PrefixList is the list of IPv6 prefixes on the interface.
func (t Target) IPv6PrefixList() string { return t.base + "/ipv6/address/prefix-list" }

// IPv6Prefix is one entry of the IPv6 prefix list. The "/" separating address
// and length is escaped so it stays part of the list key.
func (t Target) IPv6Prefix(cidr string) string {
	return t.IPv6PrefixList() + "=" + url.PathEscape(cidr)
}
