// Package ratelimit provides token bucket rate limiting for HTTP routes,
// keyed by the authenticated user or, for anonymous requests, the client
// address.
package ratelimit
