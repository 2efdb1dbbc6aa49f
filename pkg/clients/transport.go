package clients

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport caps per-host connections so a stalled upstream cannot
// accumulate unbounded sockets and goroutines.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        50,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewHTTPClient returns a client over DefaultTransport with an overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: DefaultTransport(), Timeout: timeout}
}
