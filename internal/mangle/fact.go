package mangle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
)

// Fact is a predicate applied to Go values: strings, names (strings starting
// with "/"), integers, floats and booleans.
type Fact struct {
	Predicate string `json:"predicate"`
	Args      []any  `json:"args"`
}

// NewFact is shorthand for a Fact literal.
func NewFact(predicate string, args ...any) Fact {
	return Fact{Predicate: predicate, Args: args}
}

// String returns the fact in Datalog syntax.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		switch v := a.(type) {
		case string:
			if strings.HasPrefix(v, "/") {
				args[i] = v
			} else {
				args[i] = strconv.Quote(v)
			}
		default:
			args[i] = fmt.Sprint(v)
		}
	}
	return f.Predicate + "(" + strings.Join(args, ", ") + ")."
}

// toTerm converts v to a constant of the declared type want (-1 when the
// argument is unbound).
func toTerm(v any, want ast.ConstantType) (ast.BaseTerm, error) {
	if s, ok := v.(string); ok {
		switch {
		case want == ast.StringType:
			return ast.String(s), nil
		case want == ast.NameType && !strings.HasPrefix(s, "/"):
			return ast.Name("/" + s)
		case strings.HasPrefix(s, "/"):
			return ast.Name(s)
		}
		return ast.String(s), nil
	}

	switch v := v.(type) {
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case float64:
		return ast.Float64(v), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	case ast.Constant:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

func fromTerm(t ast.BaseTerm) any {
	c, ok := t.(ast.Constant)
	if !ok {
		return fmt.Sprint(t)
	}
	switch c.Type {
	case ast.NameType, ast.StringType, ast.BytesType:
		return c.Symbol
	case ast.NumberType:
		return c.NumValue
	case ast.Float64Type:
		return math.Float64frombits(uint64(c.NumValue))
	}
	return c.String()
}
