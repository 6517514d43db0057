// Package schema provides the parse(unknown) -> T validation contracts used
// by tasks, resources, events and tags: a generic Schema[T] with a small
// set of built-in validators for the common primitive cases.
package schema

import (
	"fmt"
	"reflect"
)

// ValidationError reports a schema failure, optionally with the field path
// that failed.
type ValidationError struct {
	Message string
	Path    []string
}

func (e *ValidationError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s at path %v", e.Message, e.Path)
	}
	return e.Message
}

// Schema validates and narrows an arbitrary input value into T.
type Schema[T any] interface {
	Parse(input any) (T, error)
}

// Func adapts a plain function into a Schema.
type Func[T any] func(input any) (T, error)

func (f Func[T]) Parse(input any) (T, error) { return f(input) }

// Identity accepts a value already of type T (or nil, yielding the zero
// value) and rejects anything else. It is the schema used when a node
// declares a shape but no validation rule beyond "assignable to T".
func Identity[T any]() Schema[T] {
	return Func[T](func(input any) (T, error) {
		var zero T
		if input == nil {
			return zero, nil
		}
		v, ok := input.(T)
		if !ok {
			return zero, &ValidationError{Message: fmt.Sprintf("expected %T, got %T", zero, input)}
		}
		return v, nil
	})
}

// String validates a string against length constraints.
type String struct {
	MinLength int
	MaxLength int
}

func (s String) Parse(input any) (string, error) {
	str, ok := input.(string)
	if !ok {
		return "", &ValidationError{Message: "value is not a string"}
	}
	if s.MinLength > 0 && len(str) < s.MinLength {
		return "", &ValidationError{Message: fmt.Sprintf("string length %d is less than minimum %d", len(str), s.MinLength)}
	}
	if s.MaxLength > 0 && len(str) > s.MaxLength {
		return "", &ValidationError{Message: fmt.Sprintf("string length %d is greater than maximum %d", len(str), s.MaxLength)}
	}
	return str, nil
}

// Number validates a numeric value against range constraints, generalized
// over any real number kind via reflection.
type Number struct {
	Min, Max       float64
	HasMin, HasMax bool
	Integer        bool
}

func (n Number) Parse(input any) (float64, error) {
	var num float64
	switch v := input.(type) {
	case int:
		num = float64(v)
	case int32:
		num = float64(v)
	case int64:
		num = float64(v)
	case float32:
		num = float64(v)
	case float64:
		num = v
	default:
		rv := reflect.ValueOf(input)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			num = float64(rv.Int())
		case reflect.Float32, reflect.Float64:
			num = rv.Float()
		default:
			return 0, &ValidationError{Message: fmt.Sprintf("value %v is not a number", input)}
		}
	}
	if n.Integer && num != float64(int64(num)) {
		return 0, &ValidationError{Message: "value must be an integer"}
	}
	if n.HasMin && num < n.Min {
		return 0, &ValidationError{Message: fmt.Sprintf("value %v is less than minimum %v", num, n.Min)}
	}
	if n.HasMax && num > n.Max {
		return 0, &ValidationError{Message: fmt.Sprintf("value %v is greater than maximum %v", num, n.Max)}
	}
	return num, nil
}
