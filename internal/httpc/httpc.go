package httpc

import (
	"crypto/tls"
	"time"

	"github.com/go-resty/resty/v2"
)

// Httpc builds resty clients for the harness. A zero value yields a plain
// client with the default request budget.
type Httpc struct {
	TlsConfig *tls.Config
	Timeout   time.Duration
}

// DefaultTimeout is the fixed per-request budget for gateway and explorer
// calls. A request exceeding it is reported as a transport failure.
const DefaultTimeout = 30 * time.Second

// New returns a resty.Client configured according to the receiver's TLS and
// timeout settings. Defaults: MinVersion TLS1.3 when MinVersion is zero,
// DefaultTimeout when Timeout is zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	timeout := h.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c.SetTimeout(timeout)
	cfg := h.TlsConfig
	if cfg == nil {
		return c
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS13
	}
	c.SetTLSClientConfig(cfg)
	return c
}
