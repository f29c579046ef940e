package common

import "strconv"

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// PositiveAtoiDefault behaves like AtoiDefault but also rejects zero and
// negative results, falling back to the default instead.
func PositiveAtoiDefault(value string, def int) int {
	parsed := AtoiDefault(value, def)
	if parsed <= 0 {
		return def
	}
	return parsed
}
