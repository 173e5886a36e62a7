// Package spmapper maps typed Go entities onto SharePoint list items.
//
// Entities embed Item and tag their fields with the internal name of the
// list field they carry:
//
//	type Task struct {
//		spmapper.Item `splist:"Tasks"`
//		Title    string     `spfield:"Title"`
//		Due      *time.Time `spfield:"DueDate"`
//	}
//
// A Repository reads and writes such entities through a Client, which owns
// the transport to the list host. The memory and sql sub-packages provide
// Client implementations.
package spmapper

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Struct tag keys recognised by the mapper.
const (
	ListTag  = "splist"
	FieldTag = "spfield"
)

// Built-in field names.
const (
	IDField               = "ID"
	TitleField            = "Title"
	CreatedField          = "Created"
	ModifiedField         = "Modified"
	ModerationStatusField = "_ModerationStatus"
)

// Entity is the minimal capability of a mapped type.
type Entity interface {
	GetID() int
}

// Item is the embeddable base of mapped entities.
type Item struct {
	ID int `spfield:"ID"`
}

// GetID returns the list item id.
func (i Item) GetID() int {
	return i.ID
}

var _ Entity = Item{}

// ListIdentifier is implemented by entities that name their list in code
// instead of through the splist tag.
type ListIdentifier interface {
	SharepointList() ListRef
}

// ListRef identifies a list either by title or by id.
type ListRef struct {
	Title string
	ID    uuid.UUID
}

// ListByTitle references a list by its title.
func ListByTitle(title string) ListRef {
	return ListRef{Title: title}
}

// ListByID references a list by its id.
func ListByID(id uuid.UUID) ListRef {
	return ListRef{ID: id}
}

// ParseListRef interprets s as a list id when it parses as a GUID and as a
// title otherwise.
func ParseListRef(s string) ListRef {
	s = strings.TrimSpace(s)
	if id, err := uuid.Parse(s); err == nil {
		return ListByID(id)
	}
	return ListByTitle(s)
}

// IsTitle reports whether r resolves by title.
func (r ListRef) IsTitle() bool {
	return strings.TrimSpace(r.Title) != ""
}

// IsZero reports whether r carries no usable identity.
func (r ListRef) IsZero() bool {
	return !r.IsTitle() && r.ID == uuid.Nil
}

// String returns the title or the id of r.
func (r ListRef) String() string {
	if r.IsTitle() {
		return r.Title
	}
	if r.ID == uuid.Nil {
		return ""
	}
	return r.ID.String()
}

// TitleKey folds a list title for case-insensitive comparison, the way
// list hosts match titles.
func TitleKey(title string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(title)))
}

// Field describes a list field.
type Field struct {
	InternalName string
	Title        string
	TypeName     string
	ReadOnly     bool
}

// BuiltinFields returns the fields every list carries.
func BuiltinFields() []Field {
	return []Field{
		{InternalName: IDField, Title: "ID", TypeName: "Counter", ReadOnly: true},
		{InternalName: TitleField, Title: "Title", TypeName: "Text"},
		{InternalName: CreatedField, Title: "Created", TypeName: "DateTime", ReadOnly: true},
		{InternalName: ModifiedField, Title: "Modified", TypeName: "DateTime", ReadOnly: true},
		{InternalName: ModerationStatusField, Title: "Approval Status", TypeName: "ModStat", ReadOnly: true},
	}
}

// ListFields returns the built-in fields followed by extra. A field named
// like a built-in one replaces it.
func ListFields(extra ...Field) ([]Field, error) {
	defs := BuiltinFields()
	for _, f := range extra {
		if f.InternalName == "" {
			return nil, &ConfigError{Field: "fields", Message: "field internal name must not be empty"}
		}
		if i := slices.IndexFunc(defs, func(d Field) bool { return d.InternalName == f.InternalName }); i >= 0 {
			defs[i] = f
			continue
		}
		defs = append(defs, f)
	}
	return defs, nil
}

// FieldSet is a set of field internal names.
type FieldSet map[string]struct{}

// NewFieldSet returns a set holding names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in s.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// FieldValues is the field-value bag of a list item, keyed by internal name.
type FieldValues map[string]any

// ListItem is a list item as returned by a host.
type ListItem struct {
	ID     int
	Values FieldValues
}

// Query selects list items with a CAML view document. An empty ViewXML
// selects every item.
type Query struct {
	ViewXML string
}

// Client is the session with a list host. Every call is one round trip.
type Client interface {
	// Fields returns the field metadata of a list.
	Fields(ctx context.Context, list ListRef) ([]Field, error)

	// Items returns the items of a list selected by q.
	Items(ctx context.Context, list ListRef, q Query) ([]ListItem, error)

	// Item returns a single list item.
	Item(ctx context.Context, list ListRef, id int) (ListItem, error)

	// Execute submits queued mutations in one batch. The first failing
	// mutation aborts the rest.
	Execute(ctx context.Context, mutations ...Mutation) error
}
