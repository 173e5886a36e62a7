package spmapper

import (
	"context"
	"reflect"

	"spmapper/caml"
)

// Repository reads and writes entities of type T through a Client.
//
// Every method resolves the list from T's annotations on each call and
// performs the fixed sequence of round trips documented on it. Client
// errors are returned unchanged.
type Repository[T Entity] struct {
	*RepositoryBase
	client Client
	config Config
}

// NewRepository creates a repository for T on client.
func NewRepository[T Entity](client Client, opts ...Option) *Repository[T] {
	config := NewConfig(opts...)
	return &Repository[T]{
		RepositoryBase: NewRepositoryBase(reflect.TypeFor[T](), config),
		client:         client,
		config:         config,
	}
}

// List returns the list T maps to.
func (r *Repository[T]) List() (ListRef, error) {
	return ResolveList(r.EntityType())
}

// MappedFields returns the list fields T maps.
func (r *Repository[T]) MappedFields() ([]string, error) {
	return MappedFields(r.EntityType())
}

// Query filters items with a predicate. Predicate queries are not
// supported; Query always fails with ErrNotImplemented.
func (r *Repository[T]) Query(ctx context.Context, pred Predicate) ([]T, error) {
	ctx, span := r.StartSpan(ctx, "query")
	return nil, r.EndSpan(ctx, span, "query", ListRef{}, NewNotImplementedError("query by predicate"))
}

// QueryCAML returns the items selected by a CAML view document. A blank
// document selects every item, projected to T's mapped fields.
func (r *Repository[T]) QueryCAML(ctx context.Context, viewXML string) ([]T, error) {
	return r.query(ctx, "query_caml", Query{ViewXML: viewXML})
}

// GetAll returns every item of T's list, projected to T's mapped fields.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.query(ctx, "get_all", Query{})
}

func (r *Repository[T]) query(ctx context.Context, op string, q Query) (result []T, err error) {
	ctx, span := r.StartSpan(ctx, op)
	var list ListRef
	defer func() { err = r.EndSpan(ctx, span, op, list, err) }()

	if q.ViewXML == "" {
		if q, err = r.defaultQuery(); err != nil {
			return nil, err
		}
	}
	if list, err = r.List(); err != nil {
		return nil, err
	}
	span.SetAttributes(attrList.String(list.String()))

	items, err := r.client.Items(ctx, list, q)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attrItems.Int(len(items)))

	result = make([]T, 0, len(items))
	for _, item := range items {
		ent, err := DecodeItem[T](item.Values)
		if err != nil {
			return nil, err
		}
		result = append(result, ent)
	}
	return result, nil
}

func (r *Repository[T]) defaultQuery() (Query, error) {
	fields, err := r.MappedFields()
	if err != nil {
		return Query{}, err
	}
	view, err := caml.ViewFields(fields...).WithRowLimit(r.config.RowLimit).XML()
	if err != nil {
		return Query{}, err
	}
	return Query{ViewXML: view}, nil
}

// GetByID returns the item with the given id.
func (r *Repository[T]) GetByID(ctx context.Context, id int) (ent T, err error) {
	ctx, span := r.StartSpan(ctx, "get_by_id", attrItemID.Int(id))
	var list ListRef
	defer func() { err = r.EndSpan(ctx, span, "get_by_id", list, err) }()

	if list, err = r.List(); err != nil {
		return ent, err
	}
	span.SetAttributes(attrList.String(list.String()))

	item, err := r.client.Item(ctx, list, id)
	if err != nil {
		return ent, err
	}
	return DecodeItem[T](item.Values)
}

// Insert creates a list item from ent.
func (r *Repository[T]) Insert(ctx context.Context, ent T) error {
	return r.InsertBatch(ctx, []T{ent})
}

// InsertBatch creates one list item per entity. It loads the list's field
// metadata, then submits every AddItem in a single Execute.
func (r *Repository[T]) InsertBatch(ctx context.Context, ents []T) error {
	return r.write(ctx, "insert", ents, func(list ListRef, ent T, values FieldValues) Mutation {
		return NewAddItem(list, values)
	})
}

// Update writes the writable mapped fields of ent to its list item.
func (r *Repository[T]) Update(ctx context.Context, ent T) error {
	return r.UpdateBatch(ctx, []T{ent})
}

// UpdateBatch writes every entity to its list item. It loads the list's
// field metadata, then submits every UpdateItem in a single Execute.
func (r *Repository[T]) UpdateBatch(ctx context.Context, ents []T) error {
	return r.write(ctx, "update", ents, func(list ListRef, ent T, values FieldValues) Mutation {
		return NewUpdateItem(list, ent.GetID(), values)
	})
}

func (r *Repository[T]) write(ctx context.Context, op string, ents []T, mutate func(ListRef, T, FieldValues) Mutation) (err error) {
	ctx, span := r.StartSpan(ctx, op, attrItems.Int(len(ents)))
	var list ListRef
	defer func() { err = r.EndSpan(ctx, span, op, list, err) }()

	if list, err = r.List(); err != nil {
		return err
	}
	span.SetAttributes(attrList.String(list.String()))

	fields, err := r.client.Fields(ctx, list)
	if err != nil {
		return err
	}
	writable := WritableFields(fields)

	mutations := make([]Mutation, 0, len(ents))
	for _, ent := range ents {
		values, err := Encode(ent, writable)
		if err != nil {
			return err
		}
		mutations = append(mutations, mutate(list, ent, values))
	}
	return r.client.Execute(ctx, mutations...)
}

// Delete removes the list item of ent.
func (r *Repository[T]) Delete(ctx context.Context, ent T) error {
	return r.DeleteBatch(ctx, []T{ent})
}

// DeleteBatch removes the list item of every entity in a single Execute.
func (r *Repository[T]) DeleteBatch(ctx context.Context, ents []T) (err error) {
	ctx, span := r.StartSpan(ctx, "delete", attrItems.Int(len(ents)))
	var list ListRef
	defer func() { err = r.EndSpan(ctx, span, "delete", list, err) }()

	if list, err = r.List(); err != nil {
		return err
	}
	span.SetAttributes(attrList.String(list.String()))

	mutations := make([]Mutation, 0, len(ents))
	for _, ent := range ents {
		if isNilEntity(ent) {
			return NewConfigError(r.EntityName(), "cannot delete a nil entity", nil)
		}
		mutations = append(mutations, NewDeleteItem(list, ent.GetID()))
	}
	return r.client.Execute(ctx, mutations...)
}

func isNilEntity(ent any) bool {
	if ent == nil {
		return true
	}
	rv := reflect.ValueOf(ent)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
