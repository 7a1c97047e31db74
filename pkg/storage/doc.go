// Package storage defines the persistence interfaces for the record service.
//
// # Overview
//
// RecordStore is the primary relational store; all writes are
// compare-and-swap on the record's lock version, so a losing concurrent
// writer is detected at persistence time rather than with row locks.
// MirrorStore is the optional secondary document store kept eventually
// consistent: a failed mirror write flags the record (sync_flag = 1) for a
// later sweep instead of failing the request.
//
// # Backends
//
// pkg/storage/postgres implements RecordStore over database/sql with the
// lib/pq driver (sqlite3 supported for local development) and MirrorStore
// over Redis, with an optional in-process LRU read cache in front.
//
// # Related Packages
//
//   - pkg/lifecycle: The only writer; orchestrates all mutations
//   - pkg/query: Filter and pagination primitives consumed by List/Count
package storage
