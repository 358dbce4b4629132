package http_client

import (
	"net/http"
	"time"
)

type client struct {
	http    *http.Client
	timeout time.Duration
}

// createHTTPClient builds the pooled client. The per-request timeout is
// applied through the request context so fetch options can override it.
func createHTTPClient(timeout time.Duration) *client {
	return &client{
		timeout: timeout,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// destroyHTTPClient closes idle connections.
func destroyHTTPClient(c *client) error {
	c.http.CloseIdleConnections()
	return nil
}
