package client

import (
	"net/url"
	"strings"
)

// Policy decides whether a real backend is reachable for the current
// deployment context. When it reports false the client performs no
// network I/O at all and callers degrade to demo/offline behavior.
//
// The hostname rules here are illustrative deployment policy, not a
// wire contract; hosts with different environments inject their own.
type Policy interface {
	Available() bool
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc func() bool

func (f PolicyFunc) Available() bool { return f() }

// OriginPolicy returns the default availability policy: a backend origin
// must be configured, and a loopback origin is treated as unreachable
// when the app itself runs on a hosted (non-local) origin.
func OriginPolicy(baseURL string, hosted bool) Policy {
	return PolicyFunc(func() bool {
		if strings.TrimSpace(baseURL) == "" {
			return false
		}
		if hosted && isLoopbackOrigin(baseURL) {
			return false
		}
		return true
	})
}

func isLoopbackOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local")
}
