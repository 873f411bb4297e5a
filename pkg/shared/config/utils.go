package config

// BoolOr dereferences an optional boolean, falling back when it is unset.
func BoolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// OrDefault returns value unless it is the zero value for its type.
func OrDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
