package query

// Operator names a single field test.
type Operator string

const (
	OpEq         Operator = "$eq"
	OpNe         Operator = "$ne"
	OpGt         Operator = "$gt"
	OpGte        Operator = "$gte"
	OpLt         Operator = "$lt"
	OpLte        Operator = "$lte"
	OpIn         Operator = "$in"
	OpNin        Operator = "$nin"
	OpContains   Operator = "$contains"
	OpStartsWith Operator = "$startsWith"
	OpEndsWith   Operator = "$endsWith"
	OpRegex      Operator = "$regex"
)

// operators lists every operator in evaluation order.
var operators = []Operator{
	OpEq, OpNe, OpGt, OpLt, OpGte, OpLte,
	OpIn, OpNin,
	OpContains, OpStartsWith, OpEndsWith,
	OpRegex,
}

func (op Operator) valid() bool {
	for _, known := range operators {
		if op == known {
			return true
		}
	}
	return false
}

// expressionOperators maps comparison-expression tokens to operators.
var expressionOperators = map[string]Operator{
	"==": OpEq,
	"=":  OpEq,
	"!=": OpNe,
	">":  OpGt,
	">=": OpGte,
	"<":  OpLt,
	"<=": OpLte,
}
