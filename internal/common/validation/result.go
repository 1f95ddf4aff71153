package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result is a flat error tree: every error is keyed by a dotted field path
// such as "priceList.currency" or "productOfferings[1].validFor.endDateTime".
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewResult returns an empty, valid result.
func NewResult() *Result {
	return &Result{Valid: true}
}

// Add records an error on field.
func (r *Result) Add(field, code, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Code: code})
	r.Valid = false
}

// Merge appends other's errors, prefixing their fields with prefix when set.
func (r *Result) Merge(prefix string, other *Result) {
	if other == nil {
		return
	}
	for _, e := range other.Errors {
		if prefix != "" {
			e.Field = prefix + "." + e.Field
		}
		r.Add(e.Field, e.Code, e.Message)
	}
}

// GetErrorMessages returns "field: message" strings.
func (r *Result) GetErrorMessages() []string {
	messages := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// FieldMessages returns the first message per field.
func (r *Result) FieldMessages() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Fields returns the sorted, de-duplicated list of fields with errors.
func (r *Result) Fields() []string {
	seen := make(map[string]bool, len(r.Errors))
	var out []string
	for _, e := range r.Errors {
		if !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e.Field)
		}
	}
	sort.Strings(out)
	return out
}

// HasErrors reports whether field has an error of its own.
func (r *Result) HasErrors(field string) bool {
	for _, err := range r.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors on field or anything nested under it.
func (r *Result) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range r.Errors {
		if underPath(err.Field, field) {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// Filter keeps only errors matching one of the path patterns. A pattern may
// use "[]" to stand for any array index, so "items[].price" matches
// "items[3].price" and "items[3].price.value".
func (r *Result) Filter(patterns ...string) *Result {
	out := NewResult()
	for _, e := range r.Errors {
		normalized := NormalizePath(e.Field)
		for _, p := range patterns {
			if underPath(normalized, p) {
				out.Add(e.Field, e.Code, e.Message)
				break
			}
		}
	}
	return out
}

// Only keeps errors whose field, with array indexes normalized to "[]",
// equals one of fields exactly. Concrete paths match themselves.
func (r *Result) Only(fields ...string) *Result {
	out := NewResult()
	for _, e := range r.Errors {
		normalized := NormalizePath(e.Field)
		for _, f := range fields {
			if e.Field == f || normalized == f {
				out.Add(e.Field, e.Code, e.Message)
				break
			}
		}
	}
	return out
}

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// NormalizePath replaces concrete array indexes with "[]".
func NormalizePath(field string) string {
	return indexPattern.ReplaceAllString(field, "[]")
}

func underPath(field, prefix string) bool {
	return field == prefix || strings.HasPrefix(field, prefix+".") || strings.HasPrefix(field, prefix+"[")
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}
