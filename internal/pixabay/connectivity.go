package pixabay

import (
	"context"
	"net"
	"net/url"
	"time"
)

// NewDialProbe returns a connectivity probe that opens a TCP connection to the
// host of baseURL. Use it with WithConnectivityCheck.
func NewDialProbe(baseURL string, timeout time.Duration) func(context.Context) bool {
	addr := "pixabay.com:443"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		port := u.Port()
		if port == "" {
			port = "443"
			if u.Scheme == "http" {
				port = "80"
			}
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	dialer := &net.Dialer{Timeout: timeout}
	return func(ctx context.Context) bool {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}
