package spmapper

import (
	"reflect"
	"strings"
)

// fieldMapping binds one struct field to a list field.
type fieldMapping struct {
	Name     string // list field internal name
	Property string // dotted Go field path
	Index    []int
	Type     reflect.Type
}

var listIdentifierType = reflect.TypeFor[ListIdentifier]()

// structType returns the struct type behind t, dereferencing pointers.
func structType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, NewConfigError("<nil>", "entity type is nil", nil)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewConfigError(t.String(), "entity type must be a struct", nil)
	}
	return t, nil
}

// ResolveList returns the list an entity type maps to. ListIdentifier takes
// precedence over the splist tag. A non-blank title wins over the id.
func ResolveList(t reflect.Type) (ListRef, error) {
	st, err := structType(t)
	if err != nil {
		return ListRef{}, err
	}

	ref, found := listFromIdentifier(st)
	if !found {
		ref, found = listFromTag(st)
	}
	if !found {
		return ListRef{}, NewConfigError(st.String(),
			"missing required "+ListTag+" annotation; tag a field with `"+ListTag+":\"<title or id>\"` or implement ListIdentifier",
			ErrMissingListInfo)
	}

	switch {
	case ref.IsTitle():
		return ListByTitle(strings.TrimSpace(ref.Title)), nil
	case !ref.IsZero():
		return ListByID(ref.ID), nil
	default:
		return ListRef{}, NewConfigError(st.String(),
			"list annotation is invalid: both title and id are empty",
			ErrInvalidListInfo)
	}
}

// ListFor returns the list T maps to.
func ListFor[T any]() (ListRef, error) {
	return ResolveList(reflect.TypeFor[T]())
}

func listFromIdentifier(st reflect.Type) (ListRef, bool) {
	if !reflect.PointerTo(st).Implements(listIdentifierType) {
		return ListRef{}, false
	}
	id := reflect.New(st).Interface().(ListIdentifier)
	return id.SharepointList(), true
}

func listFromTag(st reflect.Type) (ListRef, bool) {
	for i := 0; i < st.NumField(); i++ {
		if tag, ok := st.Field(i).Tag.Lookup(ListTag); ok {
			return ParseListRef(tag), true
		}
	}
	for i := 0; i < st.NumField(); i++ {
		if f := st.Field(i); f.Anonymous && f.Type.Kind() == reflect.Struct {
			if ref, ok := listFromTag(f.Type); ok {
				return ref, true
			}
		}
	}
	return ListRef{}, false
}

// mappingsOf walks the exported fields of t, including fields promoted from
// embedded structs, and returns those carrying a spfield tag.
func mappingsOf(t reflect.Type) ([]fieldMapping, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	var out []fieldMapping
	if err := walkFields(st, st, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkFields(root, t reflect.Type, index []int, prefix string, out *[]fieldMapping) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup(FieldTag)
		idx := append(append([]int(nil), index...), i)

		if f.Anonymous && !tagged && f.Type.Kind() == reflect.Struct {
			if err := walkFields(root, f.Type, idx, prefix+f.Name+".", out); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() || !tagged || tag == "-" {
			continue
		}

		name := strings.TrimSpace(tag)
		if name == "" {
			return NewConfigErrorForField(root.String(), prefix+f.Name, FieldTag+" tag must name a list field")
		}
		*out = append(*out, fieldMapping{
			Name:     name,
			Property: prefix + f.Name,
			Index:    idx,
			Type:     f.Type,
		})
	}
	return nil
}

// MappedFields returns the distinct list field names referenced by t, in
// declaration order.
func MappedFields(t reflect.Type) ([]string, error) {
	mappings, err := mappingsOf(t)
	if err != nil {
		return nil, err
	}
	seen := make(FieldSet, len(mappings))
	names := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if seen.Has(m.Name) {
			continue
		}
		seen[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names, nil
}

// MappedFieldsFor returns the distinct list field names referenced by T.
func MappedFieldsFor[T any]() ([]string, error) {
	return MappedFields(reflect.TypeFor[T]())
}

// WritableFields returns the writable field names of a list: every field
// not flagged read-only plus the moderation status field.
func WritableFields(fields []Field) FieldSet {
	set := make(FieldSet, len(fields)+1)
	for _, f := range fields {
		if !f.ReadOnly {
			set[f.InternalName] = struct{}{}
		}
	}
	set[ModerationStatusField] = struct{}{}
	return set
}
