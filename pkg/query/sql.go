package query

import (
	"fmt"
	"strings"
)

// SQL renders the filter as a WHERE fragment with positional arguments,
// numbering placeholders from startArg. An empty filter renders as "1=1" so
// callers can append it unconditionally.
func (f *Filter) SQL(startArg int) (string, []interface{}) {
	if f == nil || f.Empty() {
		return "1=1", nil
	}
	return renderSQL(f.clauses, " AND ", &startArg)
}

func renderSQL(clauses []clause, join string, argCount *int) (string, []interface{}) {
	var parts []string
	var args []interface{}

	next := func() string {
		p := fmt.Sprintf("$%d", *argCount)
		*argCount++
		return p
	}

	for _, c := range clauses {
		switch c.op {
		case opEquals:
			parts = append(parts, fmt.Sprintf("%s = %s", sqlColumn(c.field), next()))
			args = append(args, c.value)
		case opNotEquals:
			parts = append(parts, fmt.Sprintf("%s <> %s", sqlColumn(c.field), next()))
			args = append(args, c.value)
		case opPattern:
			parts = append(parts, fmt.Sprintf("lower(%s) LIKE %s", sqlColumn(c.field), next()))
			args = append(args, likePattern(c.tokens, c.anchored))
		case opIn:
			placeholders := make([]string, len(c.ints))
			for i, n := range c.ints {
				placeholders[i] = next()
				args = append(args, n)
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", sqlColumn(c.field), strings.Join(placeholders, ", ")))
		case opDateRange:
			col := sqlDateColumn(c.field)
			parts = append(parts, fmt.Sprintf("%s >= %s", col, next()))
			args = append(args, c.start)
			parts = append(parts, fmt.Sprintf("%s <= %s", col, next()))
			args = append(args, c.end)
		case opDateEquals:
			parts = append(parts, fmt.Sprintf("%s = %s", sqlDateColumn(c.field), next()))
			args = append(args, c.start)
		case opOr:
			inner, innerArgs := renderSQL(c.sub, " OR ", argCount)
			parts = append(parts, "("+inner+")")
			args = append(args, innerArgs...)
		}
	}

	return strings.Join(parts, join), args
}

// sqlColumn maps a filter field to a column expression. Dotted fields
// address the detail JSON blob.
func sqlColumn(field string) string {
	if !strings.Contains(field, ".") {
		return field
	}
	path := strings.ReplaceAll(field, ".", ",")
	return fmt.Sprintf("(detail #>> '{%s}')", path)
}

// sqlDateColumn date-truncates the column so a plain date compares cleanly
// against a timestamp value.
func sqlDateColumn(field string) string {
	return fmt.Sprintf("date(%s)", sqlColumn(field))
}

// likePattern builds the LIKE argument from lowercased tokens. Wildcard
// characters inside tokens are escaped so user input stays literal.
func likePattern(tokens []string, anchored bool) string {
	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = escapeLike(tok)
	}
	joined := strings.Join(escaped, "%")
	if anchored {
		return joined
	}
	return "%" + joined + "%"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
