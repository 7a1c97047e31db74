package query

import (
	"strconv"
	"strings"

	"github.com/recordkit/recordkit/pkg/record"
)

type clauseOp int

const (
	opEquals clauseOp = iota
	opNotEquals
	opPattern // case-insensitive substring or anchored match
	opIn
	opDateRange
	opDateEquals
	opOr
)

type clause struct {
	op       clauseOp
	field    string
	value    interface{} // opEquals / opNotEquals
	tokens   []string    // opPattern, already lowercased
	anchored bool        // opPattern: match whole value
	ints     []int64     // opIn
	start    string      // opDateRange / opDateEquals
	end      string      // opDateRange
	sub      []clause    // opOr
}

// Filter accumulates predicates to be rendered for either backend. The zero
// value is usable and matches everything.
type Filter struct {
	clauses []clause
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Empty reports whether no predicate has been added.
func (f *Filter) Empty() bool {
	return len(f.clauses) == 0
}

// Equals adds an exact-match predicate. A nil value is a no-op.
func (f *Filter) Equals(field string, value interface{}) *Filter {
	if value == nil {
		return f
	}
	f.clauses = append(f.clauses, clause{op: opEquals, field: field, value: value})
	return f
}

// NotEquals adds an exclusion predicate. A nil value is a no-op.
func (f *Filter) NotEquals(field string, value interface{}) *Filter {
	if value == nil {
		return f
	}
	f.clauses = append(f.clauses, clause{op: opNotEquals, field: field, value: value})
	return f
}

// Like adds a case-insensitive substring match. Every space in value acts as
// a multi-token wildcard join: "john doe" matches anything containing
// "john", then anything, then "doe". An empty value is a no-op.
func (f *Filter) Like(field, value string) *Filter {
	tokens := splitTokens(value)
	if len(tokens) == 0 {
		return f
	}
	f.clauses = append(f.clauses, clause{op: opPattern, field: field, tokens: tokens})
	return f
}

// ExactString adds a case-insensitive exact match, anchored at both ends.
// An empty value is a no-op.
func (f *Filter) ExactString(field, value string) *Filter {
	if value == "" {
		return f
	}
	f.clauses = append(f.clauses, clause{
		op:       opPattern,
		field:    field,
		tokens:   []string{strings.ToLower(value)},
		anchored: true,
	})
	return f
}

// MultiValue splits a comma-separated string into integers and adds a
// member-of-set predicate. Tokens that are not integers are skipped; an
// empty result is a no-op.
func (f *Filter) MultiValue(field, csv string) *Filter {
	var ints []int64
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ints = append(ints, n)
	}
	if len(ints) == 0 {
		return f
	}
	f.clauses = append(f.clauses, clause{op: opIn, field: field, ints: ints})
	return f
}

// Status filters on a record status. Deleted records are always excluded
// unless the caller explicitly asks for them; a non-nil value additionally
// restricts to exact equality with it.
func (f *Filter) Status(field string, value *record.Status) *Filter {
	if value == nil {
		return f.NotEquals(field, int(record.StatusDeleted))
	}
	if *value != record.StatusDeleted {
		f.NotEquals(field, int(record.StatusDeleted))
	}
	return f.Equals(field, int(*value))
}

// DateRange filters on a date field. A comma in value splits it into
// inclusive start/end bounds; otherwise the value is an exact-date match.
// An empty value is a no-op.
func (f *Filter) DateRange(field, value string) *Filter {
	value = strings.TrimSpace(value)
	if value == "" {
		return f
	}
	if idx := strings.Index(value, ","); idx >= 0 {
		start := strings.TrimSpace(value[:idx])
		end := strings.TrimSpace(value[idx+1:])
		f.clauses = append(f.clauses, clause{op: opDateRange, field: field, start: start, end: end})
		return f
	}
	f.clauses = append(f.clauses, clause{op: opDateEquals, field: field, start: value})
	return f
}

// Or groups the predicates added inside fn with OR semantics instead of the
// default AND grouping. An empty group is a no-op.
func (f *Filter) Or(fn func(*Filter)) *Filter {
	group := NewFilter()
	fn(group)
	if group.Empty() {
		return f
	}
	f.clauses = append(f.clauses, clause{op: opOr, sub: group.clauses})
	return f
}

func splitTokens(value string) []string {
	fields := strings.Fields(strings.ToLower(value))
	return fields
}
