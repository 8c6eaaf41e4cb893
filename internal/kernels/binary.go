package kernels

import (
	"fmt"
	"strings"

	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
)

// Binary is an elementwise operator. Int is nil when the operator always
// produces floats; Object handles cells of object columns.
type Binary struct {
	Name   string
	Float  func(a, b float64) float64
	Int    func(a, b int64) int64
	Object func(a, b any) (any, error)
}

// Add is elementwise addition; object strings concatenate
var Add = Binary{
	Name:  "add",
	Float: func(a, b float64) float64 { return a + b },
	Int:   func(a, b int64) int64 { return a + b },
	Object: func(a, b any) (any, error) {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
		}
		return numericObject("add", a, b, func(x, y float64) float64 { return x + y })
	},
}

// Sub is elementwise subtraction
var Sub = Binary{
	Name:  "sub",
	Float: func(a, b float64) float64 { return a - b },
	Int:   func(a, b int64) int64 { return a - b },
	Object: func(a, b any) (any, error) {
		return numericObject("sub", a, b, func(x, y float64) float64 { return x - y })
	},
}

// Mul is elementwise multiplication
var Mul = Binary{
	Name:  "mul",
	Float: func(a, b float64) float64 { return a * b },
	Int:   func(a, b int64) int64 { return a * b },
	Object: func(a, b any) (any, error) {
		return numericObject("mul", a, b, func(x, y float64) float64 { return x * y })
	},
}

// Div is true division; the result is always floating
var Div = Binary{
	Name:  "div",
	Float: func(a, b float64) float64 { return a / b },
	Object: func(a, b any) (any, error) {
		return numericObject("div", a, b, func(x, y float64) float64 { return x / y })
	},
}

// ParseBinary maps "add", "sub", "mul" and "div" (or + - * /) to an operator
func ParseBinary(name string) (Binary, error) {
	switch strings.ToLower(name) {
	case "add", "+":
		return Add, nil
	case "sub", "-":
		return Sub, nil
	case "mul", "*":
		return Mul, nil
	case "div", "/":
		return Div, nil
	default:
		return Binary{}, errors.NewInvalidInputError("ParseBinary", fmt.Sprintf("unknown operator %q", name))
	}
}

func numericObject(op string, a, b any, f func(x, y float64) float64) (any, error) {
	x, ok := asFloat(a)
	if !ok {
		return nil, errors.NewDtypeMismatchError(op, label.Format(a), "operand is not numeric")
	}
	y, ok := asFloat(b)
	if !ok {
		return nil, errors.NewDtypeMismatchError(op, label.Format(b), "operand is not numeric")
	}
	return f(x, y), nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
