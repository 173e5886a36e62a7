package spmapper

// Operator represents a comparison in a list item predicate. Names follow
// the CAML comparison elements.
type Operator string

const (
	OpEq         Operator = "Eq"
	OpNeq        Operator = "Neq"
	OpGt         Operator = "Gt"
	OpGeq        Operator = "Geq"
	OpLt         Operator = "Lt"
	OpLeq        Operator = "Leq"
	OpIn         Operator = "In"
	OpContains   Operator = "Contains"
	OpBeginsWith Operator = "BeginsWith"
	OpIsNull     Operator = "IsNull"
	OpIsNotNull  Operator = "IsNotNull"
)

// Predicate is a filter over list items.
type Predicate interface{ isPredicate() }

// Condition is a simple filter condition (field op value).
type Condition struct {
	Field string
	Op    Operator
	// Value is a single value, or []any for OpIn.
	Value any
}

func (Condition) isPredicate() {}

// And matches items satisfying every child predicate.
type And []Predicate

func (And) isPredicate() {}

// Or matches items satisfying any child predicate.
type Or []Predicate

func (Or) isPredicate() {}

// Helper functions for creating conditions
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

func Neq(field string, value any) Condition {
	return Condition{Field: field, Op: OpNeq, Value: value}
}

func Gt(field string, value any) Condition {
	return Condition{Field: field, Op: OpGt, Value: value}
}

func Geq(field string, value any) Condition {
	return Condition{Field: field, Op: OpGeq, Value: value}
}

func Lt(field string, value any) Condition {
	return Condition{Field: field, Op: OpLt, Value: value}
}

func Leq(field string, value any) Condition {
	return Condition{Field: field, Op: OpLeq, Value: value}
}

func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

func Contains(field string, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

func BeginsWith(field string, value string) Condition {
	return Condition{Field: field, Op: OpBeginsWith, Value: value}
}

func IsNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNull}
}

func IsNotNull(field string) Condition {
	return Condition{Field: field, Op: OpIsNotNull}
}
