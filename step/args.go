package step

// Args holds a step's materialized arguments, keyed by parameter name.
// Values are whatever the bound input or step result carried; the
// typed accessors return the zero value on a missing key or a type
// mismatch.
type Args map[string]any

// Value returns the raw argument and whether it was present.
func (a Args) Value(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

// String returns the argument as a string, or "" if absent or not a string.
func (a Args) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the argument as an int, unwrapping the numeric types a
// JSON-decoded input commonly carries.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the argument as a bool, or false if absent or not a bool.
func (a Args) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}
