// Package httputil provides HTTP handler utilities: the uniform response
// envelope, domain-error to status-code mapping, JSON request parsing, and
// generic middleware (logging, panic recovery, CORS, body limits).
//
// Every handler response, success or failure, is wrapped in an Envelope so
// clients can rely on one shape:
//
//	{"code": 200, "success": true, "data": {...}}
//	{"code": 422, "success": false, "message": "validation failed", "errors": [...]}
package httputil
