package query

import (
	"regexp"
	"strings"
)

var expressionPattern = regexp.MustCompile(`^(==|[!<>=]=?)\s*(.+)$`)

// looksLikeExpression reports whether a string condition should be parsed
// as a comparison expression rather than compared literally.
func looksLikeExpression(s string) bool {
	if s == "" {
		return false
	}
	return strings.ContainsRune("!<>=", rune(s[0])) || strings.Contains(s, "==")
}

// ParseExpression parses a comparison string such as "!= CLOSED" or
// ">= 90". Numeric operands become float64.
func ParseExpression(s string) Expression {
	return parseExpression(s)
}

func parseExpression(s string) Expression {
	expr := Expression{Source: s}

	match := expressionPattern.FindStringSubmatch(s)
	if match == nil {
		return expr
	}

	op, ok := expressionOperators[match[1]]
	if !ok {
		// A bare "!" is not an operator.
		return expr
	}

	expr.Operator = op
	expr.Parsed = true
	if f, isNum := numeric(match[2]); isNum {
		expr.Operand = f
	} else {
		expr.Operand = match[2]
	}
	return expr
}
