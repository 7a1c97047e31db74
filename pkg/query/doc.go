// Package query builds backend-agnostic predicates for record reads.
//
// # Overview
//
// Callers accumulate filters into a Filter without knowing which backend
// runs the query. The same accumulator renders two ways: SQL produces a
// WHERE fragment with positional arguments for the relational store, and
// Document produces a MongoDB-style filter document for the mirror. All
// builders silently skip absent input; an empty filter matches everything.
//
// # Usage Example
//
//	f := query.NewFilter().
//		Like("name", "john doe").
//		Status("status", nil).             // excludes deleted
//		MultiValue("id", "1,2,3").
//		DateRange("changeLog.createdAt", "2025-01-01,2025-01-31")
//
//	where, args := f.SQL(1)
//	doc := f.Document()
//
// Fields containing a dot ("changeLog.createdAt") address the record's
// detail blob: the SQL renderer extracts the JSON path and date-truncates
// it, the document renderer uses the dotted path under "detail".
//
// # Related Packages
//
//   - pkg/storage/postgres: Executes the SQL rendering
//   - pkg/lifecycle: Builds filters from list requests
package query
