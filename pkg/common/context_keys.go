package common

type contextKey string

const (
	CallerContextKey    contextKey = "caller"
	RateLimitContextKey contextKey = "rate_limit_window"
	LatencyContextKey   contextKey = "__execution_time"
)
