package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
	ForceAttemptHTTP2:   true,
}

var (
	clientOnce sync.Once
	client     *http.Client
)

// GetHTTPClient returns the pooled client shared by the provider and embedding SDKs.
// Timeouts are left to the caller's context so streaming replies are not cut off.
func GetHTTPClient() *http.Client {
	clientOnce.Do(func() {
		client = &http.Client{Transport: customTransport}
	})
	return client
}
