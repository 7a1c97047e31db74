// Package middleware provides request-scoped HTTP middleware: identity
// resolution and request ID assignment. Generic plumbing middleware
// (logging, recovery, CORS) lives in pkg/httputil.
package middleware
