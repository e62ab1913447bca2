package fetcher

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"
)

var errBlockedAddress = errors.New("connection to private/reserved network address is not allowed")

// reservedPrefixes covers ranges the netip.Addr helpers do not classify
// (carrier-grade NAT, IETF assignments, TEST-NETs, benchmarking).
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
}

// safeDialer rejects dials to private, loopback, link-local, and reserved
// ranges. The check runs after DNS resolution, which closes the
// DNS-rebinding hole that hostname-level validation leaves open.
func safeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   rejectReservedAddress,
	}
}

func rejectReservedAddress(_ string, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", errBlockedAddress, err)
	}

	addr := addrPort.Addr().Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return fmt.Errorf("%w: %s", errBlockedAddress, addr)
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return fmt.Errorf("%w: %s", errBlockedAddress, addr)
		}
	}
	return nil
}
