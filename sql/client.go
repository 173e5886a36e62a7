package sqlsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"

	"spmapper"
	"spmapper/caml"
)

// Fields returns the field metadata of a list.
func (s *Site) Fields(ctx context.Context, ref spmapper.ListRef) ([]spmapper.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.record(func(st *Stats) { st.FieldLoads++ })

	var fields []spmapper.Field
	err := s.transactionHandler.WithReadTx(ctx, func(ctx context.Context) error {
		l, err := s.lookup(ctx, ref)
		if err != nil {
			return err
		}
		fields, err = s.fields(ctx, l)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Items returns the items of a list selected by q, ordered by id. The
// view's field projection and row limit are honoured; its <Query> element
// is not evaluated. Every item carries its ID.
func (s *Site) Items(ctx context.Context, ref spmapper.ListRef, q spmapper.Query) ([]spmapper.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, err := caml.Parse(q.ViewXML)
	if err != nil {
		return nil, err
	}
	s.record(func(st *Stats) { st.Queries++ })

	var items []spmapper.ListItem
	err = s.transactionHandler.WithReadTx(ctx, func(ctx context.Context) error {
		l, err := s.lookup(ctx, ref)
		if err != nil {
			return err
		}
		defined, names, err := s.fieldSet(ctx, l)
		if err != nil {
			return err
		}
		if projection := view.Fields(); len(projection) > 0 {
			names = projection
		}

		query, args := s.sql.selectItems, []any{l.id.String()}
		if limit := view.Limit(); limit > 0 {
			query += " LIMIT ?"
			args = append(args, limit)
		}
		stored, err := s.scanItems(ctx, query, args)
		if err != nil {
			return err
		}

		items = make([]spmapper.ListItem, 0, len(stored))
		for _, it := range stored {
			items = append(items, spmapper.ListItem{ID: it.ID, Values: project(it.ID, it.Values, names, defined)})
		}
		s.logger.DebugContext(ctx, "items queried", "list", l.title, "items", len(items))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Item returns a single item with every list field.
func (s *Site) Item(ctx context.Context, ref spmapper.ListRef, id int) (spmapper.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return spmapper.ListItem{}, err
	}
	s.record(func(st *Stats) { st.ItemLoads++ })

	var item spmapper.ListItem
	err := s.transactionHandler.WithReadTx(ctx, func(ctx context.Context) error {
		l, err := s.lookup(ctx, ref)
		if err != nil {
			return err
		}
		defined, names, err := s.fieldSet(ctx, l)
		if err != nil {
			return err
		}
		stored, err := s.loadItem(ctx, l, id)
		if err != nil {
			return err
		}
		item = spmapper.ListItem{ID: id, Values: project(id, stored, names, defined)}
		return nil
	})
	return item, err
}

// Execute applies mutations in order inside one transaction. The first
// failure rolls the whole batch back.
func (s *Site) Execute(ctx context.Context, mutations ...spmapper.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.record(func(st *Stats) { st.Executes++ })

	if s.config.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TxTimeout)
		defer cancel()
	}

	err := s.transactionHandler.WithTx(ctx, func(ctx context.Context) error {
		for i, m := range mutations {
			if err := s.apply(ctx, m); err != nil {
				s.logger.DebugContext(ctx, "batch aborted", "mutation", i, "error", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(func(st *Stats) { st.Mutations += int64(len(mutations)) })
	s.logger.DebugContext(ctx, "batch executed", "mutations", len(mutations))
	return nil
}

func (s *Site) apply(ctx context.Context, m spmapper.Mutation) error {
	l, err := s.lookup(ctx, m.Target())
	if err != nil {
		return err
	}

	switch mt := m.(type) {
	case spmapper.AddItem:
		if err := s.checkWrite(ctx, l, mt.Values); err != nil {
			return err
		}
		_, err := s.insertItem(ctx, l, mt.Values)
		return err
	case spmapper.UpdateItem:
		stored, err := s.loadItem(ctx, l, mt.ID)
		if err != nil {
			return err
		}
		if err := s.checkWrite(ctx, l, mt.Values); err != nil {
			return err
		}
		for k, v := range mt.Values {
			if k == spmapper.IDField {
				continue
			}
			stored[k] = v
		}
		stored[spmapper.ModifiedField] = s.now()
		return s.storeItem(ctx, l, mt.ID, stored)
	case spmapper.DeleteItem:
		args := []any{l.id.String(), mt.ID}
		res, err := s.queryExecutor.Exec(ctx, s.sql.deleteItem, args...)
		if err != nil {
			return s.queryError(err, "delete_item", itemsTable, s.sql.deleteItem, args)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return spmapper.NewRecordNotFoundError(l.title, mt.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: mutation %T", spmapper.ErrNotSupported, m)
	}
}

// checkWrite rejects values naming fields the list does not define.
func (s *Site) checkWrite(ctx context.Context, l listRow, values spmapper.FieldValues) error {
	defined, _, err := s.fieldSet(ctx, l)
	if err != nil {
		return err
	}
	for name := range values {
		if !defined.Has(name) {
			return fmt.Errorf("%w: column '%s' in list %s", spmapper.ErrUnknownField, name, l.title)
		}
	}
	return nil
}

func (s *Site) insertItem(ctx context.Context, l listRow, values spmapper.FieldValues) (int, error) {
	if _, err := s.queryExecutor.Exec(ctx, s.sql.nextItemID, l.id.String()); err != nil {
		return 0, s.queryError(err, "allocate_id", listsTable, s.sql.nextItemID, []any{l.id.String()})
	}
	var id int
	if err := s.queryExecutor.QueryRow(ctx, s.sql.selectLastItem, l.id.String()).Scan(&id); err != nil {
		return 0, s.queryError(err, "allocate_id", listsTable, s.sql.selectLastItem, []any{l.id.String()})
	}

	stored := maps.Clone(values)
	if stored == nil {
		stored = make(spmapper.FieldValues)
	}
	now := s.now()
	stored[spmapper.IDField] = id
	if _, ok := stored[spmapper.CreatedField]; !ok {
		stored[spmapper.CreatedField] = now
	}
	if _, ok := stored[spmapper.ModifiedField]; !ok {
		stored[spmapper.ModifiedField] = now
	}

	data, err := encodeValues(stored)
	if err != nil {
		return 0, fmt.Errorf("encode item %d of list %s: %w", id, l.title, err)
	}
	args := []any{l.id.String(), id, data}
	if _, err := s.queryExecutor.Exec(ctx, s.sql.insertItem, args...); err != nil {
		return 0, s.queryError(err, "insert_item", itemsTable, s.sql.insertItem, args)
	}
	return id, nil
}

func (s *Site) storeItem(ctx context.Context, l listRow, id int, values spmapper.FieldValues) error {
	data, err := encodeValues(values)
	if err != nil {
		return fmt.Errorf("encode item %d of list %s: %w", id, l.title, err)
	}
	args := []any{data, l.id.String(), id}
	if _, err := s.queryExecutor.Exec(ctx, s.sql.updateItem, args...); err != nil {
		return s.queryError(err, "update_item", itemsTable, s.sql.updateItem, args)
	}
	return nil
}

func (s *Site) loadItem(ctx context.Context, l listRow, id int) (spmapper.FieldValues, error) {
	var data string
	args := []any{l.id.String(), id}
	err := s.queryExecutor.QueryRow(ctx, s.sql.selectItem, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, spmapper.NewRecordNotFoundError(l.title, id)
	}
	if err != nil {
		return nil, s.queryError(err, "load_item", itemsTable, s.sql.selectItem, args)
	}
	values, err := decodeValues(data)
	if err != nil {
		return nil, fmt.Errorf("decode item %d of list %s: %w", id, l.title, err)
	}
	return values, nil
}

func (s *Site) scanItems(ctx context.Context, query string, args []any) ([]spmapper.ListItem, error) {
	rows, err := s.queryExecutor.Query(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(err, "load_items", itemsTable, query, args)
	}
	defer rows.Close()

	var items []spmapper.ListItem
	for rows.Next() {
		var (
			id   int
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, s.queryError(err, "scan_items", itemsTable, query, args)
		}
		values, err := decodeValues(data)
		if err != nil {
			return nil, fmt.Errorf("decode item %d: %w", id, err)
		}
		items = append(items, spmapper.ListItem{ID: id, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "load_items", itemsTable, query, args)
	}
	return items, nil
}

// project restricts a stored bag to names. Fields the list does not define
// are left out; defined but unset fields are nil.
func project(id int, stored spmapper.FieldValues, names []string, defined spmapper.FieldSet) spmapper.FieldValues {
	bag := make(spmapper.FieldValues, len(names)+1)
	bag[spmapper.IDField] = id
	for _, name := range names {
		if !defined.Has(name) {
			continue
		}
		bag[name] = stored[name]
	}
	return bag
}
