// Package attrs reads values back out of slog-style key-value pairs.
package attrs

// ExtractString returns the string value for key in a flat
// [key1, value1, key2, value2, ...] slice. The audit publisher uses it to
// lift fields like user_id and decision out of the attribute list that
// accompanies a workflow log line. Returns "" when the key is absent or
// its value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
