// Package api implements the HTTP surface: record CRUD under
// /api/v1/records, plus health and metrics endpoints. Handlers translate
// between HTTP and the lifecycle service; all domain rules live in
// pkg/lifecycle.
package api
