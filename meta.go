package kernel

import (
	"fmt"
	"reflect"
)

// Meta is the free-form descriptive map every node carries.
type Meta map[string]any

// MetaValue fetches key from m, converting via reflection when the stored
// value isn't already exactly T.
func MetaValue[T any](m Meta, key string) (T, error) {
	var zero T
	if m == nil {
		return zero, fmt.Errorf("meta: nil source")
	}
	v, ok := m[key]
	if !ok {
		return zero, fmt.Errorf("meta: key %q not found", key)
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	sourceValue := reflect.ValueOf(v)
	targetType := reflect.TypeOf(&zero).Elem()
	if sourceValue.IsValid() && sourceValue.Type().ConvertibleTo(targetType) {
		return sourceValue.Convert(targetType).Interface().(T), nil
	}
	return zero, fmt.Errorf("meta: key %q cannot be converted to %T", key, zero)
}

// MetaValueOr is MetaValue with a fallback instead of an error.
func MetaValueOr[T any](m Meta, key string, fallback T) T {
	v, err := MetaValue[T](m, key)
	if err != nil {
		return fallback
	}
	return v
}
