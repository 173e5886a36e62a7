// Package memory provides an in-memory list host implementing
// spmapper.Client, for tests and local development.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"spmapper"
	"spmapper/caml"
)

// Site is an in-memory list host. It is safe for concurrent use.
type Site struct {
	mu     sync.RWMutex
	lists  map[uuid.UUID]*list
	titles map[string]uuid.UUID
	stats  *Stats
	logger *slog.Logger
	now    func() time.Time
}

// Stats tracks site round trips.
type Stats struct {
	Lists        int64
	Items        int64
	FieldLoads   int64
	Queries      int64
	ItemLoads    int64
	Executes     int64
	Mutations    int64
	LastAccessed time.Time
}

// RoundTrips returns the number of client calls served.
func (s Stats) RoundTrips() int64 {
	return s.FieldLoads + s.Queries + s.ItemLoads + s.Executes
}

type list struct {
	id     uuid.UUID
	title  string
	fields []spmapper.Field
	index  spmapper.FieldSet
	items  map[int]spmapper.FieldValues
	nextID int
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the site logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for Created and Modified.
func WithClock(now func() time.Time) Option {
	return func(s *Site) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSite creates an empty site.
func NewSite(opts ...Option) *Site {
	s := &Site{
		lists:  make(map[uuid.UUID]*list),
		titles: make(map[string]uuid.UUID),
		stats:  &Stats{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memory-site")
	return s
}

var _ spmapper.Client = (*Site)(nil)

// CreateList adds a list with the built-in fields plus fields. A field
// named like a built-in one replaces it.
func (s *Site) CreateList(title string, fields ...spmapper.Field) (uuid.UUID, error) {
	key := spmapper.TitleKey(title)
	if key == "" {
		return uuid.Nil, &spmapper.ConfigError{Field: "title", Message: "list title must not be blank"}
	}

	defs, err := spmapper.ListFields(fields...)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.titles[key]; exists {
		return uuid.Nil, fmt.Errorf("%w: %s", spmapper.ErrListExists, title)
	}

	l := &list{
		id:     uuid.New(),
		title:  title,
		fields: defs,
		index:  spmapper.NewFieldSet(),
		items:  make(map[int]spmapper.FieldValues),
		nextID: 1,
	}
	for _, f := range defs {
		l.index[f.InternalName] = struct{}{}
	}
	s.lists[l.id] = l
	s.titles[key] = l.id
	s.stats.Lists++

	s.logger.Debug("list created", "list", title, "id", l.id, "fields", len(defs))
	return l.id, nil
}

// Seed stores an item without counting a round trip and returns its id.
// Values are stored as given, so raw host shapes can be planted.
func (s *Site) Seed(ref spmapper.ListRef, values spmapper.FieldValues) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.lookup(ref)
	if err != nil {
		return 0, err
	}
	id, err := l.add(values, s.now(), false)
	if err != nil {
		return 0, err
	}
	s.stats.Items++
	return id, nil
}

// Stats returns a snapshot of the site statistics.
func (s *Site) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.stats
}

// Reset drops every list and clears statistics.
func (s *Site) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists = make(map[uuid.UUID]*list)
	s.titles = make(map[string]uuid.UUID)
	s.stats = &Stats{}
}

// Fields returns the field metadata of a list.
func (s *Site) Fields(ctx context.Context, ref spmapper.ListRef) ([]spmapper.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.stats.FieldLoads++

	l, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "fields loaded", "list", l.title, "fields", len(l.fields))
	return slices.Clone(l.fields), nil
}

// Items returns the items of a list selected by q. The view's field
// projection and row limit are honoured; its <Query> element is not
// evaluated. Every item carries its ID.
func (s *Site) Items(ctx context.Context, ref spmapper.ListRef, q spmapper.Query) ([]spmapper.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, err := caml.Parse(q.ViewXML)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.stats.Queries++

	l, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}

	projection := view.Fields()
	if len(projection) == 0 {
		projection = l.fieldNames()
	}

	ids := slices.Sorted(maps.Keys(l.items))
	if limit := view.Limit(); limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]spmapper.ListItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, spmapper.ListItem{ID: id, Values: l.project(id, projection)})
	}
	s.logger.DebugContext(ctx, "items queried", "list", l.title, "items", len(items))
	return items, nil
}

// Item returns a single item with every list field.
func (s *Site) Item(ctx context.Context, ref spmapper.ListRef, id int) (spmapper.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return spmapper.ListItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.stats.ItemLoads++

	l, err := s.lookup(ref)
	if err != nil {
		return spmapper.ListItem{}, err
	}
	if _, ok := l.items[id]; !ok {
		return spmapper.ListItem{}, spmapper.NewRecordNotFoundError(l.title, id)
	}
	return spmapper.ListItem{ID: id, Values: l.project(id, l.fieldNames())}, nil
}

// Execute applies mutations in order. The first failure stops the batch;
// mutations applied before it are kept.
func (s *Site) Execute(ctx context.Context, mutations ...spmapper.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	s.stats.Executes++

	for i, m := range mutations {
		if err := s.apply(m); err != nil {
			s.logger.DebugContext(ctx, "batch aborted", "mutation", i, "error", err)
			return err
		}
		s.stats.Mutations++
	}
	s.logger.DebugContext(ctx, "batch executed", "mutations", len(mutations))
	return nil
}

func (s *Site) apply(m spmapper.Mutation) error {
	l, err := s.lookup(m.Target())
	if err != nil {
		return err
	}
	now := s.now()

	switch mt := m.(type) {
	case spmapper.AddItem:
		if _, err := l.add(mt.Values, now, true); err != nil {
			return err
		}
		s.stats.Items++
		return nil
	case spmapper.UpdateItem:
		return l.update(mt.ID, mt.Values, now)
	case spmapper.DeleteItem:
		if _, ok := l.items[mt.ID]; !ok {
			return spmapper.NewRecordNotFoundError(l.title, mt.ID)
		}
		delete(l.items, mt.ID)
		s.stats.Items--
		return nil
	default:
		return fmt.Errorf("%w: mutation %T", spmapper.ErrNotSupported, m)
	}
}

func (s *Site) lookup(ref spmapper.ListRef) (*list, error) {
	var (
		l  *list
		ok bool
	)
	if ref.IsTitle() {
		var id uuid.UUID
		if id, ok = s.titles[spmapper.TitleKey(ref.Title)]; ok {
			l, ok = s.lists[id]
		}
	} else {
		l, ok = s.lists[ref.ID]
	}
	if !ok {
		return nil, spmapper.NewListNotFoundError(ref.String())
	}
	return l, nil
}

func (s *Site) touch() {
	s.stats.LastAccessed = s.now()
}

func (l *list) fieldNames() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.InternalName
	}
	return names
}

// project returns the bag of item id restricted to names. Fields the list
// does not define are left out; defined but unset fields are nil.
func (l *list) project(id int, names []string) spmapper.FieldValues {
	stored := l.items[id]
	bag := make(spmapper.FieldValues, len(names)+1)
	bag[spmapper.IDField] = id
	for _, name := range names {
		if !l.index.Has(name) {
			continue
		}
		bag[name] = cloneValue(stored[name])
	}
	return bag
}

// checkWrite rejects values naming fields the list does not define.
func (l *list) checkWrite(values spmapper.FieldValues) error {
	for name := range values {
		if !l.index.Has(name) {
			return fmt.Errorf("%w: column '%s' in list %s", spmapper.ErrUnknownField, name, l.title)
		}
	}
	return nil
}

func (l *list) add(values spmapper.FieldValues, now time.Time, strict bool) (int, error) {
	if strict {
		if err := l.checkWrite(values); err != nil {
			return 0, err
		}
	}
	stored := make(spmapper.FieldValues, len(values)+3)
	for k, v := range values {
		stored[k] = cloneValue(v)
	}
	id := l.nextID
	l.nextID++
	stored[spmapper.IDField] = id
	if _, ok := stored[spmapper.CreatedField]; !ok {
		stored[spmapper.CreatedField] = now
	}
	if _, ok := stored[spmapper.ModifiedField]; !ok {
		stored[spmapper.ModifiedField] = now
	}
	l.items[id] = stored
	return id, nil
}

func (l *list) update(id int, values spmapper.FieldValues, now time.Time) error {
	stored, ok := l.items[id]
	if !ok {
		return spmapper.NewRecordNotFoundError(l.title, id)
	}
	if err := l.checkWrite(values); err != nil {
		return err
	}
	for k, v := range values {
		if k == spmapper.IDField {
			continue
		}
		stored[k] = cloneValue(v)
	}
	stored[spmapper.ModifiedField] = now
	return nil
}

// cloneValue deep-copies the slices and maps inside v, so stored items and
// the bags handed out never share backing memory with callers.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	return cloneReflect(reflect.ValueOf(v)).Interface()
}

func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneReflect(rv.Elem()))
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(cloneReflect(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	default:
		return rv
	}
}
