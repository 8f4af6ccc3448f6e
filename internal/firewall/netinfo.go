package firewall

// NetInfo answers the two questions the engine has about the local network:
// which device carries the default route, and what the device's local subnet
// is per address family. Implemented over netlink on Linux and by a test
// double elsewhere in this package.
type NetInfo interface {
	// DefaultDevice returns the name of the device carrying the IPv4
	// default route.
	DefaultDevice() (string, error)

	// LocalSubnet returns the device's local subnet in CIDR form for the
	// given family. ok is false when the device has no address of that
	// family; that is not an error, the engine simply skips the family's
	// local-subnet allowance.
	LocalSubnet(family Family, device string) (subnet string, ok bool, err error)
}
