package query

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/nickyhof/SheetDB/core"
)

var (
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrInvalidCondition = errors.New("invalid condition")
)

// Ops is a structured operator object, e.g. Ops{"$gte": 18, "$lt": 65}.
type Ops map[string]any

// Condition is a compiled field test. It is one of Scalar, Expression or
// Operators.
type Condition interface {
	// Match reports whether a document value satisfies the condition. Absent
	// fields are passed as nil.
	Match(value any) bool
	condition()
}

// Scalar is an implicit equality test.
type Scalar struct {
	Value any
}

func (Scalar) condition() {}

func (c Scalar) Match(value any) bool {
	return LooseEqual(value, c.Value)
}

// Expression is a parsed comparison string such as ">= 90". When the string
// looked like an expression but did not parse, Parsed is false and the
// whole Source is compared with loose equality.
type Expression struct {
	Source   string
	Operator Operator
	Operand  any
	Parsed   bool
}

func (Expression) condition() {}

func (c Expression) Match(value any) bool {
	if !c.Parsed {
		return LooseEqual(value, c.Source)
	}
	return Test{Operator: c.Operator, Operand: c.Operand}.Match(value)
}

// Operators is a conjunction of operator tests on one field.
type Operators []Test

func (Operators) condition() {}

func (c Operators) Match(value any) bool {
	for _, test := range c {
		if !test.Match(value) {
			return false
		}
	}
	return true
}

// Test is a single operator applied to an operand.
type Test struct {
	Operator Operator
	Operand  any

	members []any
	pattern *regexp.Regexp
}

func (t Test) Match(value any) bool {
	switch t.Operator {
	case OpEq:
		return LooseEqual(value, t.Operand)
	case OpNe:
		return !LooseEqual(value, t.Operand)
	case OpGt:
		return greater(value, t.Operand)
	case OpGte:
		return greaterOrEqual(value, t.Operand)
	case OpLt:
		return less(value, t.Operand)
	case OpLte:
		return lessOrEqual(value, t.Operand)
	case OpIn:
		return member(t.members, value)
	case OpNin:
		return !member(t.members, value)
	case OpContains:
		return strings.Contains(Stringify(value), Stringify(t.Operand))
	case OpStartsWith:
		return strings.HasPrefix(Stringify(value), Stringify(t.Operand))
	case OpEndsWith:
		return strings.HasSuffix(Stringify(value), Stringify(t.Operand))
	case OpRegex:
		return t.pattern != nil && t.pattern.MatchString(Stringify(value))
	default:
		return false
	}
}

func member(set []any, value any) bool {
	for _, candidate := range set {
		if LooseEqual(value, candidate) {
			return true
		}
	}
	return false
}

// CompileCondition resolves a raw condition to its shape. Maps become
// Operators, strings that start with !, <, > or = become Expressions, and
// everything else scalar becomes a Scalar.
func CompileCondition(raw any) (Condition, error) {
	switch c := raw.(type) {
	case Condition:
		return c, nil
	case Ops:
		return compileOperators(c)
	case map[string]any:
		return compileOperators(c)
	case string:
		if looksLikeExpression(c) {
			return parseExpression(c), nil
		}
		return Scalar{Value: c}, nil
	case *regexp.Regexp:
		return Operators{{Operator: OpRegex, Operand: c.String(), pattern: c}}, nil
	}

	switch reflect.ValueOf(raw).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Func, reflect.Chan:
		return nil, fmt.Errorf("%w: unsupported condition type %T", ErrInvalidCondition, raw)
	}
	return Scalar{Value: normalize(raw)}, nil
}

func compileOperators(raw map[string]any) (Operators, error) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if !Operator(key).valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, key)
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return operatorRank(Operator(keys[i])) < operatorRank(Operator(keys[j]))
	})

	tests := make(Operators, 0, len(keys))
	for _, key := range keys {
		test := Test{Operator: Operator(key), Operand: raw[key]}

		switch test.Operator {
		case OpIn, OpNin:
			test.members = sequence(test.Operand)
		case OpRegex:
			pattern, err := compilePattern(test.Operand)
			if err != nil {
				return nil, err
			}
			test.pattern = pattern
		}

		tests = append(tests, test)
	}
	return tests, nil
}

func operatorRank(op Operator) int {
	for i, known := range operators {
		if op == known {
			return i
		}
	}
	return len(operators)
}

func compilePattern(operand any) (*regexp.Regexp, error) {
	if re, ok := operand.(*regexp.Regexp); ok {
		return re, nil
	}
	source := Stringify(operand)
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, &core.PatternError{Pattern: source, Err: err}
	}
	return re, nil
}

// sequence flattens an $in/$nin operand. A non-sequence operand is treated
// as a one-element set.
func sequence(operand any) []any {
	switch s := operand.(type) {
	case nil:
		return nil
	case []any:
		return s
	case string:
		return []any{s}
	}

	v := reflect.ValueOf(operand)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return []any{operand}
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}
