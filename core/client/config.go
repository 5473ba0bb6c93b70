package client

import "time"

// Config holds gateway client configuration. An empty BaseURL is valid:
// it disables all real network calls and forces callers into demo/offline
// behavior.
type Config struct {
	// BaseURL is the single backend origin, e.g. "https://api.example.com".
	BaseURL string `env:"STOREFRONT_API_URL"`
	// Timeout bounds every regular request.
	Timeout time.Duration `env:"STOREFRONT_API_TIMEOUT" envDefault:"15s"`
	// ProbeTimeout bounds liveness probes; they must fail fast.
	ProbeTimeout time.Duration `env:"STOREFRONT_API_PROBE_TIMEOUT" envDefault:"3s"`
	// Hosted marks a deployment on a shared origin, where a loopback
	// backend address can never be reachable.
	Hosted bool `env:"STOREFRONT_HOSTED" envDefault:"false"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	return c
}
