package spmapper

import (
	"encoding/json"
	"fmt"
	"reflect"

	"spmapper/taxonomy"
)

// CalculatedErrorPlaceholder replaces the value of a calculated field whose
// formula failed to evaluate.
const CalculatedErrorPlaceholder = "Calculated field contains error."

const calculatedErrorObjectType = "SP.FieldCalculatedErrorValue"

// CalculatedError is the marker a host returns for a calculated field that
// failed to evaluate.
type CalculatedError struct {
	ErrorMessage string
}

// Map returns the raw marked mapping for e.
func (e CalculatedError) Map() map[string]any {
	return map[string]any{
		taxonomy.ObjectTypeKey: calculatedErrorObjectType,
		"ErrorMessage":         e.ErrorMessage,
	}
}

// MarshalJSON encodes e in its raw marked shape.
func (e CalculatedError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// ValueKind classifies a resolved field value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindCalculatedError
	KindTaxonomy
	KindTaxonomyCollection
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindCalculatedError:
		return "calculated error"
	case KindTaxonomy:
		return "taxonomy"
	case KindTaxonomyCollection:
		return "taxonomy collection"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a field value resolved from the raw bag representation.
type Value struct {
	kind   ValueKind
	scalar any
	term   taxonomy.FieldValue
	terms  taxonomy.Collection
}

// Kind returns the classification of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Taxonomy returns the single term held by v.
func (v Value) Taxonomy() (taxonomy.FieldValue, bool) {
	return v.term, v.kind == KindTaxonomy
}

// TaxonomyCollection returns the terms held by v.
func (v Value) TaxonomyCollection() (taxonomy.Collection, bool) {
	return v.terms, v.kind == KindTaxonomyCollection
}

// Interface returns the Go value v stands for. Calculated errors yield
// CalculatedErrorPlaceholder.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindCalculatedError:
		return CalculatedErrorPlaceholder
	case KindTaxonomy:
		return v.term
	case KindTaxonomyCollection:
		return v.terms
	default:
		return nil
	}
}

// ResolveValue classifies a raw bag value. Marked mappings are rebuilt into
// taxonomy values or calculated errors; every other value is a scalar.
func ResolveValue(raw any) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return Value{}, nil
	case CalculatedError:
		return Value{kind: KindCalculatedError}, nil
	case *CalculatedError:
		if r == nil {
			return Value{}, nil
		}
		return Value{kind: KindCalculatedError}, nil
	case taxonomy.FieldValue:
		return Value{kind: KindTaxonomy, term: r}, nil
	case *taxonomy.FieldValue:
		if r == nil {
			return Value{}, nil
		}
		return Value{kind: KindTaxonomy, term: *r}, nil
	case taxonomy.Collection:
		return Value{kind: KindTaxonomyCollection, terms: r}, nil
	case []taxonomy.FieldValue:
		return Value{kind: KindTaxonomyCollection, terms: r}, nil
	case map[string]any:
		return resolveMarked(r)
	case FieldValues:
		return resolveMarked(r)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}, nil
		}
	}
	return Value{kind: KindScalar, scalar: raw}, nil
}

func resolveMarked(m map[string]any) (Value, error) {
	switch taxonomy.ObjectType(m) {
	case taxonomy.ValueObjectType:
		term, err := taxonomy.FromMap(m)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindTaxonomy, term: term}, nil
	case taxonomy.CollectionObjectType:
		terms, err := taxonomy.CollectionFromMap(m)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindTaxonomyCollection, terms: terms}, nil
	case calculatedErrorObjectType:
		return Value{kind: KindCalculatedError}, nil
	default:
		return Value{kind: KindScalar, scalar: m}, nil
	}
}
