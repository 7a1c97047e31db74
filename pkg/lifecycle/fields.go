package lifecycle

import (
	"fmt"
	"math"
	"sort"

	"github.com/recordkit/recordkit/pkg/record"
)

// Scenario names a validation context that determines which input fields are
// permitted and required.
type Scenario string

const (
	ScenarioCreate Scenario = "create"
	ScenarioUpdate Scenario = "update"
	ScenarioDelete Scenario = "delete"
)

// Input is the raw field set submitted with a request, as decoded from JSON.
type Input map[string]interface{}

// FieldSet declares the permitted and required fields for one scenario.
type FieldSet struct {
	Allowed  []string
	Required []string
}

// Scenarios maps scenario names to their field sets.
type Scenarios map[Scenario]FieldSet

// DefaultScenarios returns the stock per-scenario field declarations. The id
// is deliberately absent from create: it is assigned by storage.
func DefaultScenarios() Scenarios {
	return Scenarios{
		ScenarioCreate: {
			Allowed:  []string{"name", "description", "status"},
			Required: []string{"name"},
		},
		ScenarioUpdate: {
			Allowed:  []string{"id", "name", "description", "status", "lock_version"},
			Required: []string{"id", "lock_version"},
		},
		ScenarioDelete: {
			Allowed:  []string{"id", "lock_version"},
			Required: []string{"id", "lock_version"},
		},
	}
}

// Validate checks the scenario's own declaration for sanity: every required
// field must also be allowed.
func (s Scenarios) Validate() error {
	for name, fs := range s {
		allowed := map[string]bool{}
		for _, f := range fs.Allowed {
			allowed[f] = true
		}
		for _, f := range fs.Required {
			if !allowed[f] {
				return fmt.Errorf("scenario %s requires field %q that it does not allow", name, f)
			}
		}
	}
	return nil
}

// validateFields checks input against the scenario's field set and the shape
// rules for id, status and lock_version. All problems are collected into a
// single validation error rather than failing on the first.
func (s Scenarios) validateFields(scenario Scenario, input Input) error {
	fs, ok := s[scenario]
	if !ok {
		return record.NewError(record.KindValidation, fmt.Sprintf("unknown scenario %q", scenario))
	}

	allowed := map[string]bool{}
	for _, f := range fs.Allowed {
		allowed[f] = true
	}

	var fieldErrs []record.FieldError

	var extras []string
	for field := range input {
		if !allowed[field] {
			extras = append(extras, field)
		}
	}
	sort.Strings(extras) // deterministic error order
	for _, field := range extras {
		fieldErrs = append(fieldErrs, record.FieldError{
			Field:   field,
			Message: fmt.Sprintf("field is not permitted in scenario %s", scenario),
		})
	}

	for _, field := range fs.Required {
		if _, present := input[field]; !present {
			fieldErrs = append(fieldErrs, record.FieldError{
				Field:   field,
				Message: "field is required",
			})
		}
	}

	for _, field := range []string{"id", "lock_version"} {
		if raw, present := input[field]; present && allowed[field] {
			if _, ok := positiveInt(raw); !ok {
				fieldErrs = append(fieldErrs, record.FieldError{
					Field:   field,
					Message: "must be a positive integer",
				})
			}
		}
	}

	if raw, present := input["status"]; present && allowed["status"] {
		if _, ok := statusValue(raw); !ok {
			fieldErrs = append(fieldErrs, record.FieldError{
				Field:   "status",
				Message: "is not a valid status",
			})
		}
	}

	if raw, present := input["name"]; present && allowed["name"] {
		if s, ok := raw.(string); !ok || s == "" {
			fieldErrs = append(fieldErrs, record.FieldError{
				Field:   "name",
				Message: "must be a non-empty string",
			})
		}
	}

	if len(fieldErrs) > 0 {
		return record.NewValidationError("validation failed", fieldErrs...)
	}
	return nil
}

// positiveInt extracts a positive integer from a JSON-decoded value. JSON
// numbers arrive as float64; integral string forms are not accepted.
func positiveInt(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return int64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// statusValue extracts a valid record status from a JSON-decoded value.
func statusValue(raw interface{}) (record.Status, bool) {
	var n int
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	case record.Status:
		n = int(v)
	default:
		return 0, false
	}
	s := record.Status(n)
	if !s.Valid() {
		return 0, false
	}
	return s, true
}

// stringValue extracts a string field, tolerating absence.
func stringValue(input Input, key string) (string, bool) {
	raw, present := input[key]
	if !present {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
