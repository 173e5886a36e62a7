package spmapper

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/spf13/cast"

	"spmapper/taxonomy"
)

var (
	timeType               = reflect.TypeFor[time.Time]()
	durationType           = reflect.TypeFor[time.Duration]()
	taxonomyValueType      = reflect.TypeFor[taxonomy.FieldValue]()
	taxonomyCollectionType = reflect.TypeFor[taxonomy.Collection]()
	taxonomySliceType      = reflect.TypeFor[[]taxonomy.FieldValue]()
)

// resolveFor classifies raw for a property of type t. Taxonomy markers are
// honoured only for taxonomy-typed properties; any other property receives
// the marked mapping as is.
func resolveFor(raw any, t reflect.Type) (Value, error) {
	if !isTaxonomyType(t) {
		var m map[string]any
		switch r := raw.(type) {
		case map[string]any:
			m = r
		case FieldValues:
			m = r
		}
		switch taxonomy.ObjectType(m) {
		case taxonomy.ValueObjectType, taxonomy.CollectionObjectType:
			return Value{kind: KindScalar, scalar: raw}, nil
		}
	}
	return ResolveValue(raw)
}

func isTaxonomyType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == taxonomyValueType || t == taxonomyCollectionType || t == taxonomySliceType
}

// Decode copies the values of a list item's field bag into dst, which must
// be a non-nil pointer to a mapped struct. Every mapped field must be
// present in values; a null value assigns the property's zero value.
func Decode(values FieldValues, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return NewConfigError(fmt.Sprintf("%T", dst), "decode target must be a non-nil pointer", nil)
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	return decodeStruct(values, rv)
}

// DecodeItem builds a fresh T from a field bag. T may be a struct or a
// pointer to one.
func DecodeItem[T any](values FieldValues) (T, error) {
	var ent T
	if err := Decode(values, &ent); err != nil {
		var zero T
		return zero, err
	}
	return ent, nil
}

func decodeStruct(values FieldValues, rv reflect.Value) error {
	mappings, err := mappingsOf(rv.Type())
	if err != nil {
		return err
	}
	typeName := rv.Type().String()

	for _, m := range mappings {
		raw, ok := values[m.Name]
		if !ok {
			return NewSchemaError(ErrFieldNotFound, typeName, m.Name, m.Property)
		}
		if err := assign(rv.FieldByIndex(m.Index), raw); err != nil {
			return WrapMappingError(err, typeName, m.Name, m.Property)
		}
	}
	return nil
}

func assign(dst reflect.Value, raw any) error {
	val, err := resolveFor(raw, dst.Type())
	if err != nil {
		return err
	}
	if val.IsNull() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	return convertInto(dst, val)
}

func convertInto(dst reflect.Value, val Value) error {
	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		if err := convertInto(elem.Elem(), val); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch t {
	case taxonomyValueType:
		term, ok := val.Taxonomy()
		if !ok {
			return fmt.Errorf("%w: expected taxonomy field value, got %s (%T)", ErrUnsupportedShape, val.Kind(), val.Interface())
		}
		dst.Set(reflect.ValueOf(term))
		return nil
	case taxonomyCollectionType, taxonomySliceType:
		terms, ok := val.TaxonomyCollection()
		if !ok {
			return fmt.Errorf("%w: expected taxonomy field value collection, got %s (%T)", ErrUnsupportedShape, val.Kind(), val.Interface())
		}
		dst.Set(reflect.ValueOf(terms).Convert(t))
		return nil
	}

	native := val.Interface()
	if nv := reflect.ValueOf(native); nv.Type().AssignableTo(t) {
		dst.Set(nv)
		return nil
	}
	if err := coerce(dst, native); err != nil {
		return fmt.Errorf("%w: %T to %s: %v", ErrConversion, native, t, err)
	}
	return nil
}

// coerce converts v to the kind of dst.
func coerce(dst reflect.Value, v any) error {
	t := dst.Type()
	switch {
	case t == timeType:
		tm, err := cast.ToTimeE(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(tm))
		return nil
	case t == durationType:
		d, err := cast.ToDurationE(v)
		if err != nil {
			return err
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return err
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		if t.Kind() == reflect.Float32 && math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return fmt.Errorf("value %g overflows %s", f, t)
		}
		dst.SetFloat(f)
	case reflect.Slice:
		return coerceSlice(dst, v)
	case reflect.Map:
		if t.Key().Kind() != reflect.String || t.Elem().Kind() != reflect.Interface {
			return fmt.Errorf("unsupported map type %s", t)
		}
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(m).Convert(t))
	default:
		nv := reflect.ValueOf(v)
		if !nv.Type().ConvertibleTo(t) {
			return fmt.Errorf("unsupported target type %s", t)
		}
		dst.Set(nv.Convert(t))
	}
	return nil
}

func coerceSlice(dst reflect.Value, v any) error {
	t := dst.Type()
	switch t.Elem().Kind() {
	case reflect.String:
		s, err := cast.ToStringSliceE(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(s).Convert(t))
	case reflect.Int:
		s, err := cast.ToIntSliceE(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(s).Convert(t))
	case reflect.Interface:
		s, err := cast.ToSliceE(v)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(s).Convert(t))
	default:
		return fmt.Errorf("unsupported slice type %s", t)
	}
	return nil
}

// Encode copies the writable mapped fields of src into a new field bag.
// Fields outside writable are skipped. Nil pointers encode as nil.
func Encode(src any, writable FieldSet) (FieldValues, error) {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, NewConfigError(fmt.Sprintf("%T", src), "cannot encode a nil entity", nil)
		}
		rv = rv.Elem()
	}
	mappings, err := mappingsOf(rv.Type())
	if err != nil {
		return nil, err
	}

	values := make(FieldValues, len(mappings))
	for _, m := range mappings {
		if !writable.Has(m.Name) {
			continue
		}
		values[m.Name] = fieldInterface(rv.FieldByIndex(m.Index))
	}
	return values, nil
}

func fieldInterface(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}
