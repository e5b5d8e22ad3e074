package query

import (
	"sort"

	"github.com/nickyhof/SheetDB/core"
)

// Query maps column names to raw conditions.
type Query map[string]any

type fieldCondition struct {
	field     string
	condition Condition
}

// Matcher is a compiled Query. It holds no reference to the Query it was
// built from and is safe to reuse across documents.
type Matcher struct {
	fields []fieldCondition
}

// Compile resolves every condition in q. An empty or nil query compiles to
// a Matcher that accepts every document.
func Compile(q Query) (*Matcher, error) {
	fields := make([]string, 0, len(q))
	for field := range q {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	m := &Matcher{fields: make([]fieldCondition, 0, len(fields))}
	for _, field := range fields {
		cond, err := CompileCondition(q[field])
		if err != nil {
			return nil, err
		}
		m.fields = append(m.fields, fieldCondition{field: field, condition: cond})
	}
	return m, nil
}

// Matches reports whether every field condition holds for doc.
func (m *Matcher) Matches(doc core.Document) bool {
	if m == nil {
		return true
	}
	for _, fc := range m.fields {
		value, _ := doc.Get(fc.field)
		if !fc.condition.Match(value) {
			return false
		}
	}
	return true
}

// Fields returns the column names the matcher tests, sorted.
func (m *Matcher) Fields() []string {
	fields := make([]string, len(m.fields))
	for i, fc := range m.fields {
		fields[i] = fc.field
	}
	return fields
}

// Matches compiles q and applies it to doc.
func Matches(doc core.Document, q Query) (bool, error) {
	m, err := Compile(q)
	if err != nil {
		return false, err
	}
	return m.Matches(doc), nil
}

// Equalities extracts the values a document must hold to satisfy q's
// equality conditions: plain scalars, $eq operands and "="/"==" expression
// operands. Other conditions are skipped.
func Equalities(q Query) map[string]any {
	values := make(map[string]any)
	for field, raw := range q {
		cond, err := CompileCondition(raw)
		if err != nil {
			continue
		}
		switch c := cond.(type) {
		case Scalar:
			values[field] = raw
		case Expression:
			if c.Parsed && c.Operator == OpEq {
				values[field] = c.Operand
			}
		case Operators:
			for _, test := range c {
				if test.Operator == OpEq {
					values[field] = test.Operand
				}
			}
		}
	}
	return values
}
