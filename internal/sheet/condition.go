package sheet

import "strings"

// Condition is a parsed equality filter of the form "column=value".
type Condition struct {
	Column string
	Value  string
}

// ParseCondition parses a simple SQL-like condition of the form
// 'column=value'. The mini-language is intentionally constrained to a
// single equality; anything without '=' yields no condition.
func ParseCondition(raw string) (Condition, bool) {
	if raw == "" || !strings.Contains(raw, "=") {
		return Condition{}, false
	}
	column, value, _ := strings.Cut(raw, "=")
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "'")
	value = strings.Trim(value, `"`)
	return Condition{
		Column: strings.TrimSpace(column),
		Value:  value,
	}, true
}
