package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/restconf"
)

const testBase = "https://192.0.2.1/restconf/data/Cisco-IOS-XE-native:native/interface/"

// fakeInventory serves interfaces from a map.
type fakeInventory map[int64]*domain.Interface

func (f fakeInventory) GetInterface(ctx context.Context, id int64) (*domain.Interface, error) {
	iface, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("interface %d: %w", id, domain.ErrNotFound)
	}
	cp := *iface
	return &cp, nil
}

type call struct {
	Method  string
	URL     string
	Payload any
}

// recorder is a Configurator that records calls. Responses are keyed by
// "METHOD URL"; anything not listed succeeds.
type recorder struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]error
}

var _ restconf.Configurator = (*recorder)(nil)

func (r *recorder) record(method, url string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{Method: method, URL: url, Payload: payload})
	return r.responses[method+" "+url]
}

func (r *recorder) Put(ctx context.Context, url string, payload any) error {
	return r.record("PUT", url, payload)
}

func (r *recorder) Patch(ctx context.Context, url string, payload any) error {
	return r.record("PATCH", url, payload)
}

func (r *recorder) Delete(ctx context.Context, url string) error {
	return r.record("DELETE", url, nil)
}

// lines returns "METHOD URL" for each call with the common prefix trimmed.
func (r *recorder) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Method+" "+strings.TrimPrefix(c.URL, testBase))
	}
	return out
}

func notFound(method, url string) error {
	return &restconf.StatusError{Method: method, URL: url, StatusCode: 404, Status: "404 Not Found"}
}

func ptr[T any](v T) *T { return &v }

func testDevice() domain.Device {
	return domain.Device{ID: 1, Name: "r1", PrimaryIP: "192.0.2.1/24"}
}
