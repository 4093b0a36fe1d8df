package restconf

import (
	"fmt"
	"regexp"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
)

var interfaceNameRe = regexp.MustCompile(`^(\D+)(\d+.*)$`)

// ParseInterfaceName splits an interface name into the YANG list type and its
// key, e.g. "GigabitEthernet0/1" -> ("GigabitEthernet", "0/1").
func ParseInterfaceName(name string) (typ, id string, err error) {
	m := interfaceNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("%q: %w", name, domain.ErrParse)
	}
	return m[1], m[2], nil
}
