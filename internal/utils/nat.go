package utils

import (
	"context"
	"net"
	"sync"
	"time"

	natlib "github.com/libp2p/go-nat"
)

// NAT is an alias to the libp2p NAT interface so callers outside this layer
// do not need to import the external package directly.
type NAT = natlib.NAT

var (
	natOnce      sync.Once
	cachedNAT    NAT
	cachedNATErr error
)

// DiscoverNAT attempts to locate a NAT gateway using UPnP or NAT-PMP.
// The result is cached for the process lifetime to avoid repeated SSDP lookups.
func DiscoverNAT(ctx context.Context) (NAT, error) {
	natOnce.Do(func() {
		// Short timeout so console requests are never blocked on discovery.
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		cachedNAT, cachedNATErr = natlib.DiscoverGateway(c)
	})
	return cachedNAT, cachedNATErr
}

// GetExternalIP returns the external IP address from the discovered NAT device.
func GetExternalIP(ctx context.Context) (net.IP, error) {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return nil, err
	}
	return n.GetExternalAddress()
}

// MapConsolePort ensures a TCP mapping exists for the station console port.
// Returns the external port assigned by the gateway, which can differ from
// the internal port. Refreshing is done by re-adding with the same lifetime.
func MapConsolePort(ctx context.Context, internalPort int, lifetime time.Duration) (int, error) {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return 0, err
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.AddPortMapping(c, "tcp", internalPort, "WebSync Station console", lifetime)
}

// UnmapConsolePort removes the TCP mapping for the station console port.
func UnmapConsolePort(ctx context.Context, internalPort int) error {
	n, err := DiscoverNAT(ctx)
	if err != nil || n == nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.DeletePortMapping(c, "tcp", internalPort)
}
