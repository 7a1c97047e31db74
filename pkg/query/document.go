package query

import (
	"regexp"
	"strings"
)

// Document renders the filter as a MongoDB-style filter document. The
// document is JSON-serializable and uses the standard operator vocabulary
// ($in, $ne, $regex, $gte/$lte) so any document store speaking that dialect
// can consume it. An empty filter renders as an empty document (match-all).
func (f *Filter) Document() map[string]interface{} {
	if f == nil || f.Empty() {
		return map[string]interface{}{}
	}
	return renderDocument(f.clauses, "$and")
}

func renderDocument(clauses []clause, join string) map[string]interface{} {
	parts := make([]map[string]interface{}, 0, len(clauses))

	for _, c := range clauses {
		switch c.op {
		case opEquals:
			parts = append(parts, map[string]interface{}{docField(c.field): c.value})
		case opNotEquals:
			parts = append(parts, map[string]interface{}{
				docField(c.field): map[string]interface{}{"$ne": c.value},
			})
		case opPattern:
			parts = append(parts, map[string]interface{}{
				docField(c.field): map[string]interface{}{
					"$regex":   regexPattern(c.tokens, c.anchored),
					"$options": "i",
				},
			})
		case opIn:
			values := make([]interface{}, len(c.ints))
			for i, n := range c.ints {
				values[i] = n
			}
			parts = append(parts, map[string]interface{}{
				docField(c.field): map[string]interface{}{"$in": values},
			})
		case opDateRange:
			parts = append(parts, map[string]interface{}{
				docField(c.field): map[string]interface{}{"$gte": c.start, "$lte": c.end},
			})
		case opDateEquals:
			parts = append(parts, map[string]interface{}{docField(c.field): c.start})
		case opOr:
			parts = append(parts, renderDocument(c.sub, "$or"))
		}
	}

	if len(parts) == 1 && join == "$and" {
		return parts[0]
	}
	anyParts := make([]interface{}, len(parts))
	for i, p := range parts {
		anyParts[i] = p
	}
	return map[string]interface{}{join: anyParts}
}

// docField maps a filter field to its document path. Dotted fields live
// under the detail sub-document.
func docField(field string) string {
	if strings.Contains(field, ".") {
		return "detail." + field
	}
	return field
}

// regexPattern builds the case-insensitive regex equivalent of the LIKE
// pattern: tokens joined by ".*", optionally anchored at both ends.
func regexPattern(tokens []string, anchored bool) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	joined := strings.Join(quoted, ".*")
	if anchored {
		return "^" + joined + "$"
	}
	return joined
}
