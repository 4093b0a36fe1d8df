package service

import (
	"context"
	"errors"
	"log"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/restconf"
)

// opCounter wraps a Configurator for the duration of one event and counts the
// calls that reached the device.
type opCounter struct {
	next restconf.Configurator
	n    int
}

func (c *opCounter) Put(ctx context.Context, url string, payload any) error {
	c.n++
	return c.next.Put(ctx, url, payload)
}

func (c *opCounter) Patch(ctx context.Context, url string, payload any) error {
	c.n++
	return c.next.Patch(ctx, url, payload)
}

func (c *opCounter) Delete(ctx context.Context, url string) error {
	c.n++
	return c.next.Delete(ctx, url)
}

// withdraw deletes a resource; a 404 means it is already gone.
func withdraw(ctx context.Context, dev restconf.Configurator, url string) error {
	err := dev.Delete(ctx, url)
	if errors.Is(err, domain.ErrNotFound) {
		log.Printf("[Reconcile] %s already absent", url)
		return nil
	}
	return err
}
