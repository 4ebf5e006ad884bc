package scanner

import (
	"fmt"
	"net/netip"

	"airspace_fan/internal/models"
)

// MaxCIDRHosts bounds how many addresses one CIDR may expand to.
const MaxCIDRHosts = 4096

// ExpandCIDR lists the host addresses of prefix on port, skipping the network
// and broadcast addresses of IPv4 prefixes shorter than /31.
func ExpandCIDR(cidr string, port int) ([]models.DeviceAddress, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("parse cidr %q: %w", cidr, err)
	}
	prefix = prefix.Masked()

	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 12 {
		return nil, fmt.Errorf("cidr %q: more than %d hosts", cidr, MaxCIDRHosts)
	}

	trimEdges := prefix.Addr().Is4() && hostBits >= 2
	size := 1 << hostBits

	out := make([]models.DeviceAddress, 0, size)
	addr := prefix.Addr()
	for i := 0; i < size; i, addr = i+1, addr.Next() {
		if trimEdges && (i == 0 || i == size-1) {
			continue
		}
		out = append(out, models.DeviceAddress{Host: addr.String(), Port: port})
	}
	return out, nil
}

// Candidates merges a CIDR range and explicit hosts into one de-duplicated list.
// Either may be empty.
func Candidates(cidr string, hosts []string, port int) ([]models.DeviceAddress, error) {
	var out []models.DeviceAddress
	if cidr != "" {
		expanded, err := ExpandCIDR(cidr, port)
		if err != nil {
			return nil, err
		}
		out = expanded
	}

	seen := make(map[models.DeviceAddress]struct{}, len(out)+len(hosts))
	for _, a := range out {
		seen[a] = struct{}{}
	}
	for _, h := range hosts {
		if h == "" {
			continue
		}
		a := models.DeviceAddress{Host: h, Port: port}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
