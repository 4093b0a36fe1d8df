package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/netbox"
	"github.com/bcnelson/netbox-restconf-sync/internal/restconf"
)

// AddressService applies IP address assignments from NetBox to device
// interfaces. IPv4 addresses replace the single primary address; IPv6
// addresses are entries of the interface prefix list.
type AddressService struct {
	inventory netbox.Inventory
	device    restconf.Configurator
	endpoint  restconf.Endpoint
}

// NewAddressService creates a new AddressService.
func NewAddressService(inventory netbox.Inventory, device restconf.Configurator, endpoint restconf.Endpoint) *AddressService {
	return &AddressService{inventory: inventory, device: device, endpoint: endpoint}
}

// Reconcile handles one address event. Nothing is done for unassigned
// addresses, addresses assigned to anything but a device interface, or when
// the assigned interface is management-only; in those cases a prior
// assignment is left alone too.
func (s *AddressService) Reconcile(ctx context.Context, ev domain.AddressEvent) (domain.Outcome, error) {
	if ev.AssignedInterfaceID == nil {
		log.Printf("[Address] %s is not assigned to an interface, nothing to do", ev.Address)
		return domain.Outcome{Status: domain.StatusSkipped, Reason: "unassigned"}, nil
	}
	if !domain.IsDeviceInterface(ev.AssignedType) {
		log.Printf("[Address] %s is assigned to a %s, not a device interface, nothing to do", ev.Address, ev.AssignedType)
		return domain.Outcome{Status: domain.StatusSkipped, Reason: "not a device interface"}, nil
	}

	current, err := s.inventory.GetInterface(ctx, *ev.AssignedInterfaceID)
	if err != nil {
		return domain.Outcome{Status: domain.StatusFailed}, fmt.Errorf("resolving assigned interface: %w", err)
	}
	if current.MgmtOnly {
		log.Printf("[Address] %s on %s is a management interface, no changes will be performed", current.Name, current.Device.Name)
		return domain.Outcome{Status: domain.StatusSkipped, Reason: "management interface"}, nil
	}

	dev := &opCounter{next: s.device}
	switch ev.Event {
	case domain.EventCreated:
		err = s.configure(ctx, dev, current, ev)
	case domain.EventDeleted:
		err = s.unconfigure(ctx, dev, current, ev)
	case domain.EventUpdated:
		err = s.update(ctx, dev, current, ev)
	default:
		return domain.Outcome{Status: domain.StatusRejected}, fmt.Errorf("event %q: %w", ev.Event, domain.ErrInvalidInput)
	}
	if err != nil {
		return domain.Outcome{Status: domain.StatusFailed, Operations: dev.n}, err
	}
	return domain.Outcome{Status: domain.StatusApplied, Operations: dev.n}, nil
}

// update withdraws the address from the interface named in the prechange
// snapshot when it moved, then configures it on the current interface.
func (s *AddressService) update(ctx context.Context, dev restconf.Configurator, current *domain.Interface, ev domain.AddressEvent) error {
	if ev.PriorInterfaceID == nil {
		log.Printf("[Address] %s not previously assigned", ev.Address)
	} else if *ev.PriorInterfaceID != current.ID {
		old, err := s.inventory.GetInterface(ctx, *ev.PriorInterfaceID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Printf("[Address] previous interface %d of %s no longer exists", *ev.PriorInterfaceID, ev.Address)
		case err != nil:
			return fmt.Errorf("resolving previous interface: %w", err)
		case old.MgmtOnly:
			log.Printf("[Address] previous interface %s is a management interface, leaving it alone", old.Name)
		default:
			if err := s.unconfigure(ctx, dev, old, ev); err != nil {
				return err
			}
		}
	}
	return s.configure(ctx, dev, current, ev)
}

func (s *AddressService) configure(ctx context.Context, dev restconf.Configurator, iface *domain.Interface, ev domain.AddressEvent) error {
	target, err := s.endpoint.Target(iface)
	if err != nil {
		return err
	}
	log.Printf("[Address] Assigning %s to %s on %s", ev.Address, iface.Name, iface.Device.Name)

	if ev.Family == domain.FamilyIPv6 {
		return ConfigureIPv6(ctx, dev, target, ev.Address)
	}
	return ConfigureIPv4(ctx, dev, target, ev.Address)
}

func (s *AddressService) unconfigure(ctx context.Context, dev restconf.Configurator, iface *domain.Interface, ev domain.AddressEvent) error {
	target, err := s.endpoint.Target(iface)
	if err != nil {
		return err
	}
	log.Printf("[Address] Removing %s from %s on %s", ev.Address, iface.Name, iface.Device.Name)

	if ev.Family == domain.FamilyIPv6 {
		return UnconfigureIPv6(ctx, dev, target, ev.Address)
	}
	return UnconfigureIPv4(ctx, dev, target)
}

// ConfigureIPv4 replaces the interface's primary IPv4 address.
func ConfigureIPv4(ctx context.Context, dev restconf.Configurator, t restconf.Target, cidr string) error {
	address, mask, err := domain.IPv4Primary(cidr)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"primary": map[string]string{
			"address": address,
			"mask":    mask,
		},
	}
	if err := dev.Put(ctx, t.PrimaryIPv4(), payload); err != nil {
		return fmt.Errorf("configuring %s: %w", cidr, err)
	}
	return nil
}

// ConfigureIPv6 adds cidr to the interface's IPv6 prefix list, leaving other
// entries in place.
func ConfigureIPv6(ctx context.Context, dev restconf.Configurator, t restconf.Target, cidr string) error {
	payload := map[string]any{
		"prefix-list": []map[string]string{
			{"prefix": cidr},
		},
	}
	if err := dev.Patch(ctx, t.IPv6PrefixList(), payload); err != nil {
		return fmt.Errorf("configuring %s: %w", cidr, err)
	}
	return nil
}

// UnconfigureIPv4 deletes the interface's primary IPv4 address.
func UnconfigureIPv4(ctx context.Context, dev restconf.Configurator, t restconf.Target) error {
	if err := withdraw(ctx, dev, t.PrimaryIPv4()); err != nil {
		return fmt.Errorf("removing primary address: %w", err)
	}
	return nil
}

// UnconfigureIPv6 deletes cidr from the interface's IPv6 prefix list.
func UnconfigureIPv6(ctx context.Context, dev restconf.Configurator, t restconf.Target, cidr string) error {
	if err := withdraw(ctx, dev, t.IPv6Prefix(cidr)); err != nil {
		return fmt.Errorf("removing %s: %w", cidr, err)
	}
	return nil
}
