package netbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
)

// FileShim is a testing implementation that serves interfaces from a JSON
// file instead of the NetBox API. The file is re-read on every lookup so it
// can be edited while the listener runs.
//
// File format:
//
//	{"interfaces": [{"id": 42, "name": "GigabitEthernet2", "enabled": true,
//	  "mtu": 9000, "mgmt_only": false,
//	  "device": {"id": 1, "name": "r1", "primary_ip": "192.0.2.1/24"}}]}
type FileShim struct {
	filePath string
	mu       sync.RWMutex
}

// Ensure FileShim implements Inventory.
var _ Inventory = (*FileShim)(nil)

type shimFile struct {
	Interfaces []*domain.Interface `json:"interfaces"`
}

// NewFileShim creates a new file-based inventory for testing.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{filePath: filePath}
}

// GetInterface looks up an interface by id in the shim file.
func (f *FileShim) GetInterface(ctx context.Context, id int64) (*domain.Interface, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}

	var file shimFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing inventory file: %w", err)
	}

	for _, iface := range file.Interfaces {
		if iface.ID == id {
			log.Printf("[FileShim] Interface %d resolved to %s on %s", id, iface.Name, iface.Device.Name)
			return iface, nil
		}
	}
	return nil, fmt.Errorf("interface %d: %w", id, domain.ErrNotFound)
}

// Put adds or replaces an interface in the shim file.
func (f *FileShim) Put(iface *domain.Interface) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var file shimFile
	data, err := os.ReadFile(f.filePath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing inventory file: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading inventory file: %w", err)
	}

	replaced := false
	for i, existing := range file.Interfaces {
		if existing.ID == iface.ID {
			file.Interfaces[i] = iface
			replaced = true
		}
	}
	if !replaced {
		file.Interfaces = append(file.Interfaces, iface)
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling inventory: %w", err)
	}
	if err := os.WriteFile(f.filePath, out, 0644); err != nil {
		return fmt.Errorf("writing inventory file: %w", err)
	}
	return nil
}
