package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// normalize reduces a value to one of nil, bool, float64 or string.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// LooseEqual reports whether a and b are equal under coercing comparison:
//
//   - nil equals only nil
//   - two strings are equal when identical
//   - two numbers are equal when numerically equal (NaN equals nothing)
//   - a string compared with a number is converted to a number first
//   - a boolean is converted to 1 or 0 and the comparison repeated
//
// Integer and unsigned types are treated as numbers.
func LooseEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if x, ok := a.(bool); ok {
		return LooseEqual(boolNumber(x), b)
	}
	if y, ok := b.(bool); ok {
		return LooseEqual(a, boolNumber(y))
	}

	switch x := a.(type) {
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case float64:
			return stringNumber(x) == y
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case string:
			return x == stringNumber(y)
		}
	}
	return false
}

// relational orders a against b. Two strings compare lexicographically;
// otherwise both sides are converted to numbers. ok is false when either
// side is not a number, in which case every ordering test fails.
func relational(a, b any) (cmp int, ok bool) {
	a, b = normalize(a), normalize(b)

	if x, isStr := a.(string); isStr {
		if y, isStr := b.(string); isStr {
			return strings.Compare(x, y), true
		}
	}

	x, y := toNumber(a), toNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	default:
		return 0, true
	}
}

// Compare returns -1 when a orders before b, 1 when after, and 0 when they
// tie or cannot be ordered. It is the comparator used for ORDER BY.
func Compare(a, b any) int {
	cmp, ok := relational(a, b)
	if !ok {
		return 0
	}
	return cmp
}

func greater(a, b any) bool {
	cmp, ok := relational(a, b)
	return ok && cmp > 0
}

func greaterOrEqual(a, b any) bool {
	cmp, ok := relational(a, b)
	return ok && cmp >= 0
}

func less(a, b any) bool {
	cmp, ok := relational(a, b)
	return ok && cmp < 0
}

func lessOrEqual(a, b any) bool {
	cmp, ok := relational(a, b)
	return ok && cmp <= 0
}

// Stringify renders a value the way substring and regex tests see it. nil
// renders as the empty string.
func Stringify(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || (abs != 0 && abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		return boolNumber(x)
	case string:
		return stringNumber(x)
	}
	return math.NaN()
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// stringNumber converts a string to a number: surrounding whitespace is
// ignored, the empty string is 0, 0x/0o/0b prefixes are integers, and
// anything else that is not a plain decimal literal is NaN.
func stringNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' && strings.ContainsRune("xXoObB", rune(s[1])) {
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}

	if strings.ContainsAny(s, "iInNxXpP_") {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// numeric reports whether s converts to a number.
func numeric(s string) (float64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	f := stringNumber(s)
	return f, !math.IsNaN(f)
}
