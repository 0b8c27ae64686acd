package domain

import "errors"

// Security-relevant errors are surfaced to the caller as hard failures;
// classification-path errors are always recovered locally by the fallback
// heuristic or a demo response.
var (
	ErrMissingCredential = errors.New("missing authorization header")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	ErrClassifierUnavailable     = errors.New("classifier unavailable")
	ErrMalformedClassifierOutput = errors.New("malformed classifier output")
	ErrScanProviderUnavailable   = errors.New("scan provider unavailable")
	ErrTargetUnreachable         = errors.New("target unreachable")
)

// IsSecurityError reports whether err must be propagated to the caller with
// its status code instead of being masked by a fallback verdict.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrRateLimitExceeded)
}
