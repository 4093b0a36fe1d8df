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

// InterfaceService pushes NetBox interface attributes (admin status,
// description, MTU) to the device.
type InterfaceService struct {
	inventory netbox.Inventory
	device    restconf.Configurator
	endpoint  restconf.Endpoint
}

// NewInterfaceService creates a new InterfaceService.
func NewInterfaceService(inventory netbox.Inventory, device restconf.Configurator, endpoint restconf.Endpoint) *InterfaceService {
	return &InterfaceService{inventory: inventory, device: device, endpoint: endpoint}
}

// Reconcile reads interface id from NetBox and writes its admin status,
// description and MTU to the device. Every step runs on every event; the first
// failing step aborts the rest.
func (s *InterfaceService) Reconcile(ctx context.Context, id int64) (domain.Outcome, error) {
	iface, err := s.inventory.GetInterface(ctx, id)
	if err != nil {
		return domain.Outcome{Status: domain.StatusFailed}, fmt.Errorf("resolving interface: %w", err)
	}

	if iface.MgmtOnly {
		log.Printf("[Interface] %s on %s is a management interface, no changes will be performed", iface.Name, iface.Device.Name)
		return domain.Outcome{Status: domain.StatusSkipped, Reason: "management interface"}, nil
	}

	target, err := s.endpoint.Target(iface)
	if err != nil {
		return domain.Outcome{Status: domain.StatusFailed}, err
	}

	log.Printf("[Interface] Configuring %s on %s (%s)", iface.Name, iface.Device.Name, target)

	dev := &opCounter{next: s.device}
	steps := []func(context.Context, restconf.Configurator, restconf.Target, *domain.Interface) error{
		SetAdminStatus,
		SetDescription,
		SetMTU,
	}
	for _, step := range steps {
		if err := step(ctx, dev, target, iface); err != nil {
			return domain.Outcome{Status: domain.StatusFailed, Operations: dev.n}, err
		}
	}
	return domain.Outcome{Status: domain.StatusApplied, Operations: dev.n}, nil
}

// SetAdminStatus enables the interface by deleting its shutdown marker, or
// disables it by writing one. Deleting a marker that is not there means the
// interface is already enabled.
func SetAdminStatus(ctx context.Context, dev restconf.Configurator, t restconf.Target, iface *domain.Interface) error {
	if iface.Enabled {
		err := dev.Delete(ctx, t.Shutdown())
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("[Interface] %s is already enabled", iface.Name)
			return nil
		}
		if err != nil {
			return fmt.Errorf("enabling %s: %w", iface.Name, err)
		}
		return nil
	}

	payload := map[string]any{"shutdown": []any{nil}}
	if err := dev.Put(ctx, t.Shutdown(), payload); err != nil {
		return fmt.Errorf("disabling %s: %w", iface.Name, err)
	}
	return nil
}

// SetDescription replaces the description, or deletes it when NetBox has
// none.
func SetDescription(ctx context.Context, dev restconf.Configurator, t restconf.Target, iface *domain.Interface) error {
	desc, ok := iface.DesiredDescription()
	if !ok {
		if err := withdraw(ctx, dev, t.Description()); err != nil {
			return fmt.Errorf("removing description of %s: %w", iface.Name, err)
		}
		return nil
	}
	if err := dev.Put(ctx, t.Description(), map[string]string{"description": desc}); err != nil {
		return fmt.Errorf("setting description of %s: %w", iface.Name, err)
	}
	return nil
}

// SetMTU writes the NetBox MTU, or domain.DefaultMTU when none is set.
func SetMTU(ctx context.Context, dev restconf.Configurator, t restconf.Target, iface *domain.Interface) error {
	if err := dev.Put(ctx, t.MTU(), map[string]int{"mtu": iface.DesiredMTU()}); err != nil {
		return fmt.Errorf("setting MTU of %s: %w", iface.Name, err)
	}
	return nil
}
