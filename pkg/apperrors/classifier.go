package apperrors

import (
	"context"
	"errors"
	"strings"
)

// heuristics maps message substrings to kinds. Order matters: the first
// match wins, so authentication markers must precede the generic
// "invalid" validation marker.
var heuristics = []struct {
	marker string
	kind   Kind
}{
	{"failed to fetch", KindNetwork},
	{"connection refused", KindNetwork},
	{"no such host", KindNetwork},
	{"network", KindNetwork},
	{"timeout", KindNetwork},
	{"deadline exceeded", KindNetwork},
	{"unreachable", KindNetwork},
	{"unauthorized", KindAuthentication},
	{"not authenticated", KindAuthentication},
	{"token expired", KindAuthentication},
	{"invalid token", KindAuthentication},
	{"jwt", KindAuthentication},
	{"forbidden", KindAuthorization},
	{"access denied", KindAuthorization},
	{"not found", KindNotFound},
	{"too many requests", KindRateLimit},
	{"rate limit", KindRateLimit},
	{"internal server", KindServer},
	{"bad gateway", KindServer},
	{"service unavailable", KindServer},
	{"unprocessable", KindValidation},
	{"validation", KindValidation},
	{"invalid", KindValidation},
}

// Classify maps an arbitrary failure into the closed Kind taxonomy.
// Errors already tagged with a Kind keep it; context cancellation counts
// as a network failure since requests are the only suspension points.
// Everything else is matched by message substring, falling back to
// KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, h := range heuristics {
		if strings.Contains(msg, h.marker) {
			return h.kind
		}
	}

	return KindUnknown
}
