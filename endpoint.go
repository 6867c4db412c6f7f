package gelf

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// resolveEndpoint turns an endpoint string into a concrete UDP address.
//
// Resolution is two-phase. The fast path parses the endpoint directly as a
// numeric "ip:port" (IPv6 in brackets); it is a pure parse with no network
// I/O, so it succeeds even when DNS is unreachable. Any parse failure means
// "not numeric" and falls through to the DNS path: split host from port at
// the last colon, resolve the port (numeric or service name), then look up
// the hostname, bounded by ctx. The first resolved address is taken
// deterministically.
func resolveEndpoint(ctx context.Context, endpoint string) (*net.UDPAddr, error) {
	if ap, err := netip.ParseAddrPort(endpoint); err == nil {
		return net.UDPAddrFromAddrPort(ap), nil
	}

	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: cannot separate host from port: %w", endpoint, err)
	}

	port, err := net.DefaultResolver.LookupPort(ctx, "udp", portStr)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: invalid port %q: %w", endpoint, portStr, err)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: resolving host %q: %w", endpoint, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("endpoint %q: host %q resolved to no addresses", endpoint, host)
	}

	return &net.UDPAddr{IP: addrs[0].IP, Zone: addrs[0].Zone, Port: port}, nil
}
