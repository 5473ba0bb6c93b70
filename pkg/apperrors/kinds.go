package apperrors

// Kind identifies the category of a failure surfaced to callers.
// The set is closed: every failure in the system maps to exactly one Kind.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindNetwork        Kind = "NETWORK"
	KindServer         Kind = "SERVER"
	KindNotFound       Kind = "NOT_FOUND"
	KindRateLimit      Kind = "RATE_LIMIT"
	KindUnknown        Kind = "UNKNOWN"
)
