package common

// GuestSubject is the sentinel identity used when a handler soft-fails
// authentication and lets the request proceed under guest-tier limits.
const GuestSubject = "guest"

// Caller identifies who issued a request: an authenticated subject or the
// guest sentinel.
type Caller struct {
	Subject string
	Guest   bool
}

func GuestCaller() Caller {
	return Caller{Subject: GuestSubject, Guest: true}
}

func AuthenticatedCaller(subject string) Caller {
	return Caller{Subject: subject}
}
