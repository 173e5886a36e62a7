// Package taxonomy models managed-metadata (taxonomy) field values and
// reconstructs them from the loosely typed mappings a list host returns.
package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Keys and markers used by the raw wire shape of taxonomy values.
const (
	ObjectTypeKey = "_ObjectType_"
	ChildItemsKey = "_Child_Items_"

	ValueObjectType      = "SP.Taxonomy.TaxonomyFieldValue"
	CollectionObjectType = "SP.Taxonomy.TaxonomyFieldValueCollection"

	labelKey    = "Label"
	termGUIDKey = "TermGuid"
	wssIDKey    = "WssId"
)

var (
	// ErrNotTaxonomyValue is returned when a mapping carries no taxonomy value marker.
	ErrNotTaxonomyValue = errors.New("mapping represents no taxonomy field value")

	// ErrNotTaxonomyCollection is returned when a mapping carries no taxonomy collection marker.
	ErrNotTaxonomyCollection = errors.New("mapping represents no taxonomy field value collection")

	// ErrMissingChildItems is returned when a collection mapping lacks its child items.
	ErrMissingChildItems = fmt.Errorf("missing %q key in taxonomy field value collection", ChildItemsKey)

	// ErrMalformed is returned when a marked mapping has unusable members.
	ErrMalformed = errors.New("malformed taxonomy field value")
)

// FieldValue is a reference to a term in a managed term set.
type FieldValue struct {
	Label    string
	TermGUID uuid.UUID
	// WssID is the term's lookup id in the site's hidden taxonomy list.
	WssID int
}

// String returns the term label.
func (v FieldValue) String() string {
	return v.Label
}

// IsZero reports whether v references no term.
func (v FieldValue) IsZero() bool {
	return v.Label == "" && v.TermGUID == uuid.Nil && v.WssID == 0
}

// Map returns the raw marked mapping for v.
func (v FieldValue) Map() map[string]any {
	return map[string]any{
		ObjectTypeKey: ValueObjectType,
		labelKey:      v.Label,
		termGUIDKey:   v.TermGUID.String(),
		wssIDKey:      v.WssID,
	}
}

// MarshalJSON encodes v in its raw marked shape.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// Collection is an ordered set of term references.
type Collection []FieldValue

// Labels returns the label of every term in order.
func (c Collection) Labels() []string {
	labels := make([]string, len(c))
	for i, v := range c {
		labels[i] = v.Label
	}
	return labels
}

// Map returns the raw marked mapping for c.
func (c Collection) Map() map[string]any {
	children := make([]any, len(c))
	for i, v := range c {
		children[i] = v.Map()
	}
	return map[string]any{
		ObjectTypeKey: CollectionObjectType,
		ChildItemsKey: children,
	}
}

// MarshalJSON encodes c in its raw marked shape.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// ObjectType returns the object type marker of a raw mapping, or "" if absent.
func ObjectType(m map[string]any) string {
	s, _ := m[ObjectTypeKey].(string)
	return s
}

// FromMap reconstructs a single value from its raw marked mapping. Label,
// TermGuid and WssId must all be present and non-nil.
func FromMap(m map[string]any) (FieldValue, error) {
	if ObjectType(m) != ValueObjectType {
		return FieldValue{}, ErrNotTaxonomyValue
	}
	for _, key := range []string{labelKey, termGUIDKey, wssIDKey} {
		if m[key] == nil {
			return FieldValue{}, fmt.Errorf("%w: missing %q", ErrMalformed, key)
		}
	}

	label, err := cast.ToStringE(m[labelKey])
	if err != nil {
		return FieldValue{}, fmt.Errorf("%w: label: %v", ErrMalformed, err)
	}

	raw := cast.ToString(m[termGUIDKey])
	termID, err := uuid.Parse(raw)
	if err != nil {
		return FieldValue{}, fmt.Errorf("%w: term guid %q: %v", ErrMalformed, raw, err)
	}

	wssID, err := cast.ToIntE(m[wssIDKey])
	if err != nil {
		return FieldValue{}, fmt.Errorf("%w: wss id: %v", ErrMalformed, err)
	}

	return FieldValue{Label: label, TermGUID: termID, WssID: wssID}, nil
}

// CollectionFromMap reconstructs a collection from its raw marked mapping.
// Every child must itself be a marked single value.
func CollectionFromMap(m map[string]any) (Collection, error) {
	if ObjectType(m) != CollectionObjectType {
		return nil, ErrNotTaxonomyCollection
	}
	raw, ok := m[ChildItemsKey]
	if !ok {
		return nil, ErrMissingChildItems
	}

	var children []any
	switch items := raw.(type) {
	case nil:
	case []any:
		children = items
	case []map[string]any:
		children = make([]any, len(items))
		for i, item := range items {
			children[i] = item
		}
	default:
		return nil, fmt.Errorf("%w: child items are %T", ErrMalformed, raw)
	}

	values := make(Collection, 0, len(children))
	for i, child := range children {
		cm, ok := child.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: child %d is %T", ErrMalformed, i, child)
		}
		v, err := FromMap(cm)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}
