// Package discovery declares the contract this library expects from an
// mDNS resolver, without implementing one (spec §1: multicast DNS
// discovery is an external collaborator, specified only by interface —
// the channel consumes an already-resolved address).
package discovery

import "context"

// DeviceInfo is one resolved Cast device, as an mDNS collaborator would
// report it from a `_googlecast._tcp` TXT record.
type DeviceInfo struct {
	DisplayName  string
	Host         string
	Port         int
	UniqueID     string
	Capabilities int // raw `ca` bitmap; decode with the capabilities package
}

// Resolver discovers Cast devices on the local network. Implementations
// live outside this module; this interface exists so callers can depend on
// a discovery source without this library importing an mDNS stack.
type Resolver interface {
	// Resolve blocks until at least one device is found, ctx is
	// cancelled, or an implementation-defined scan timeout elapses.
	Resolve(ctx context.Context) ([]DeviceInfo, error)

	// Watch streams devices as they appear and disappear until ctx is
	// cancelled. Implementations close the returned channel on exit.
	Watch(ctx context.Context) (<-chan DeviceInfo, error)
}
