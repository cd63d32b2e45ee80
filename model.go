package rowsnap

import (
	"database/sql"
	"fmt"
	"reflect"
	"sync"
)

// Model is a persisted entity: a fixed, ordered set of columns stored in one
// table row located by a key column.
type Model interface {
	SchemaName() string
	TableName() string
	KeyColumn() string
	// ColumnNames lists the persisted columns in table declaration order.
	ColumnNames() []string
	// Field returns the accessor bound to a column name.
	Field(name string) (Accessor, bool)
}

// Predicated is implemented by models that need more than the key to locate
// their row, e.g. "`world` = 3". The fragment must not start with WHERE.
type Predicated interface {
	ExtraPredicate() string
}

// Accessor reads and writes one field of a model.
type Accessor interface {
	// Get returns the live value; present is false when no reading is available.
	Get() (v any, present bool)
	// Set assigns a value read from the store, converting driver types as
	// database/sql does for Scan.
	Set(v any) error
	Type() reflect.Type
}

// Fields is an ordered accessor table. Models embed it to implement
// ColumnNames and Field.
type Fields struct {
	names  []string
	byName map[string]Accessor
}

// Bind appends a column bound to a.
func (f *Fields) Bind(name string, a Accessor) *Fields {
	if f.byName == nil {
		f.byName = map[string]Accessor{}
	}
	if _, ok := f.byName[name]; !ok {
		f.names = append(f.names, name)
	}
	f.byName[name] = a
	return f
}

func (f *Fields) ColumnNames() []string {
	return append([]string(nil), f.names...)
}

func (f *Fields) Field(name string) (Accessor, bool) {
	a, ok := f.byName[name]
	return a, ok && a != nil
}

// Ref binds a plain field; it always reports a reading.
func Ref[T any](p *T) Accessor {
	return ref[T]{p: p}
}

type ref[T any] struct{ p *T }

func (r ref[T]) Get() (any, bool)   { return *r.p, true }
func (r ref[T]) Set(v any) error    { return assign(r.p, v) }
func (r ref[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// Ptr binds a pointer field; a nil pointer means no reading is available and
// is never treated as a change.
func Ptr[T any](p **T) Accessor {
	return ptr[T]{p: p}
}

type ptr[T any] struct{ p **T }

func (r ptr[T]) Get() (any, bool) {
	if *r.p == nil {
		return nil, false
	}
	return **r.p, true
}

func (r ptr[T]) Set(v any) error {
	if v == nil {
		*r.p = nil
		return nil
	}
	t := new(T)
	if err := assign(t, v); err != nil {
		return err
	}
	*r.p = t
	return nil
}

func (r ptr[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// Locked binds a field that other goroutines mutate under l.
func Locked[T any](l sync.Locker, p *T) Accessor {
	return locked[T]{l: l, p: p}
}

type locked[T any] struct {
	l sync.Locker
	p *T
}

func (r locked[T]) Get() (any, bool) {
	r.l.Lock()
	defer r.l.Unlock()
	return *r.p, true
}

func (r locked[T]) Set(v any) error {
	r.l.Lock()
	defer r.l.Unlock()
	return assign(r.p, v)
}

func (r locked[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// assign stores v into dst, converting driver values (int64, []byte, ...)
// the way database/sql converts scan destinations. nil stores the zero value.
func assign[T any](dst *T, v any) error {
	if t, ok := v.(T); ok {
		*dst = t
		return nil
	}
	var n sql.Null[T]
	if err := n.Scan(v); err != nil {
		return fmt.Errorf("%w: %T into %s: %w", ErrBind, v, reflect.TypeFor[T](), err)
	}
	*dst = n.V
	return nil
}
