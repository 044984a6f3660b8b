package utils

import (
	"time"
)

type contextKey string

// Request-scoped context keys set by handlers
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
	AdminIDKey   contextKey = "admin_id"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request handling constants
const (
	DefaultRequestTimeout = 30 * time.Second

	DefaultPageSize = 20
	MaxPageSize     = 100

	// IdempotencyKeyHeader carries the client's retry key on create requests
	IdempotencyKeyHeader = "Idempotency-Key"
)
