//go:build linux

package firewall

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// netlinkInfo implements NetInfo via rtnetlink.
type netlinkInfo struct{}

// NewNetlinkInfo returns a NetInfo backed by the kernel routing tables.
func NewNetlinkInfo() NetInfo {
	return netlinkInfo{}
}

// DefaultDevice returns the device carrying the IPv4 default route.
func (netlinkInfo) DefaultDevice() (string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("firewall: list routes: %w", err)
	}
	for _, r := range routes {
		if r.Dst != nil && r.Dst.IP != nil && !r.Dst.IP.IsUnspecified() {
			continue
		}
		link, err := netlink.LinkByIndex(r.LinkIndex)
		if err != nil {
			return "", fmt.Errorf("firewall: resolve default route device: %w", err)
		}
		return link.Attrs().Name, nil
	}
	return "", fmt.Errorf("firewall: no default route found")
}

// LocalSubnet returns the device's subnet for the family, masked to the
// network address. Link-local addresses are not local subnets for policy
// purposes and are skipped.
func (netlinkInfo) LocalSubnet(family Family, device string) (string, bool, error) {
	link, err := netlink.LinkByName(device)
	if err != nil {
		return "", false, fmt.Errorf("firewall: lookup device %s: %w", device, err)
	}

	nlFamily := netlink.FAMILY_V4
	if family == IPv6 {
		nlFamily = netlink.FAMILY_V6
	}
	addrs, err := netlink.AddrList(link, nlFamily)
	if err != nil {
		return "", false, fmt.Errorf("firewall: list %s addresses on %s: %w", family, device, err)
	}

	for _, a := range addrs {
		if a.IPNet == nil || a.IP.IsLinkLocalUnicast() {
			continue
		}
		network := *a.IPNet
		network.IP = network.IP.Mask(network.Mask)
		return network.String(), true, nil
	}
	return "", false, nil
}
