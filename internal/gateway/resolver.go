package gateway

import (
	"context"
	"errors"
	"net"
	"time"
)

// newFallbackDialer returns a DialContext that retries one configured
// host against a fixed IP when name resolution fails. Some field
// networks blackhole DNS for the production host while routing to its IP
// fine; the fallback keeps the app usable there. With an empty host the
// dialer is a plain net.Dialer.
func newFallbackDialer(connectTimeout time.Duration, fallbackHost, fallbackIP string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: connectTimeout}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err == nil || fallbackHost == "" || fallbackIP == "" {
			return conn, err
		}

		var dnsErr *net.DNSError
		if !errors.As(err, &dnsErr) {
			return nil, err
		}

		host, port, splitErr := net.SplitHostPort(addr)
		if splitErr != nil || host != fallbackHost {
			return nil, err
		}

		return dialer.DialContext(ctx, network, net.JoinHostPort(fallbackIP, port))
	}
}
