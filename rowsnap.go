// Package rowsnap keeps an in-memory object in sync with its table row.
//
// A Snapshot loads the row into a Model, remembers the loaded values as its
// baseline, and on every Update compares the live field values against that
// baseline. Only the columns that changed are written, with an UPDATE once the
// row is known to exist and an INSERT before. An UPDATE that matches no row is
// re-run as the equivalent INSERT.
package rowsnap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mickamy/rowsnap/internal/buffer"
)

// Config defines the options of a Snapshot.
type Config struct {
	AutoFlush bool         // flush on every Update, even when nothing changed
	SkipLoad  bool         // do not load the row in New
	Dialect   Dialect      // default: MySQL
	Logger    *slog.Logger // default: slog.Default()
}

// Snapshot tracks the persisted state of one Model.
type Snapshot struct {
	cfg   Config
	store Store
	model Model
	meta  Meta
	key   any
	log   *slog.Logger

	// flushMu is held for a whole load or flush: synthesize, execute, commit.
	flushMu sync.Mutex

	// mu guards the fields below.
	mu       sync.Mutex
	loaded   bool
	dirty    bool
	baseline map[string]any
	pending  *buffer.Buffer[int, any] // column index -> value
}

// column is a declared column with a resolved accessor.
type column struct {
	idx  int
	name string
	acc  Accessor
}

// New creates a Snapshot of model, located by key, and loads its row unless
// cfg.SkipLoad is set. A missing row is not an error: the Snapshot stays
// unloaded and its first flush inserts. When the load fails the unloaded
// Snapshot is returned along with the error, so the caller may retry Load.
func New(ctx context.Context, store Store, model Model, key any, cfg Config) (*Snapshot, error) {
	if store == nil {
		return nil, errors.New("rowsnap: nil store")
	}
	if cfg.Dialect == nil {
		cfg.Dialect = MySQL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	meta, err := MetaOf(model)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		cfg:      cfg,
		store:    store,
		model:    model,
		meta:     meta,
		key:      key,
		log:      cfg.Logger.With("table", meta.Table, "key", key, "dialect", cfg.Dialect.Name()),
		baseline: make(map[string]any, len(meta.Columns)),
		pending:  buffer.NewBuffer[int, any](),
	}
	if !cfg.SkipLoad {
		if _, err := s.Load(ctx); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Load reads the row into the model and makes it the baseline. It reports
// whether a row was found; an already loaded Snapshot is not reloaded.
func (s *Snapshot) Load(ctx context.Context) (bool, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return true, nil
	}
	cols := s.columns()
	s.mu.Unlock()

	st, err := SelectStatement(s.metaFor(cols), s.cfg.Dialect, s.key)
	if err != nil {
		s.log.ErrorContext(ctx, "rowsnap: load aborted", append(logAttrs(ctx), "error", err)...)
		return false, err
	}
	row, err := s.store.QueryStatement(ctx, st)
	if errors.Is(err, ErrNoRows) {
		s.log.DebugContext(ctx, "rowsnap: no row to load", logAttrs(ctx)...)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rowsnap: load %s: %w", s.meta.Table, err)
	}
	if len(row) != len(cols) {
		return false, fmt.Errorf("%w: load %s: got %d columns, want %d", ErrExec, s.meta.Table, len(row), len(cols))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range cols {
		if err := c.acc.Set(row[i]); err != nil {
			s.log.WarnContext(ctx, "rowsnap: cannot assign column",
				append(logAttrs(ctx), "column", c.name, "type", c.acc.Type(), "error", err)...)
			continue
		}
		if v, ok := c.acc.Get(); ok {
			s.baseline[c.name] = clone(v)
		}
	}
	s.pending.Reset()
	s.dirty = false
	s.loaded = true
	return true, nil
}

// Diff records every column whose live value differs from its pending or
// baseline value. Absent readings are ignored. It reports whether anything
// new was recorded; a second call without mutations records nothing.
func (s *Snapshot) Diff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diffLocked()
}

func (s *Snapshot) diffLocked() bool {
	changed := false
	for _, c := range s.columns() {
		last, ok := s.pending.Get(c.idx)
		if !ok {
			last = s.baseline[c.name]
		}
		live, present := c.acc.Get()
		if !present || Equal(last, live) {
			continue
		}
		s.pending.Put(c.idx, clone(live))
		s.dirty = true
		changed = true
	}
	return changed
}

// Update diffs and, when something changed or AutoFlush is set, flushes.
// Concurrent calls serialize, so an unloaded row is inserted at most once.
func (s *Snapshot) Update(ctx context.Context) (bool, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.diffLocked()
	flush := s.dirty || s.cfg.AutoFlush
	s.mu.Unlock()
	if !flush {
		return false, nil
	}
	return s.flushLocked(ctx)
}

// Flush writes the pending changes. It reports false without touching the
// store when nothing is pending. On failure the pending changes are kept so a
// later Flush resends them.
func (s *Snapshot) Flush(ctx context.Context) (bool, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Snapshot) flushLocked(ctx context.Context) (bool, error) {
	s.mu.Lock()
	flushed := s.pending.Entries()
	if len(flushed) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	st, written := s.statementLocked(flushed)
	s.mu.Unlock()

	res, err := s.store.ExecStatement(ctx, st)
	if err != nil {
		s.log.ErrorContext(ctx, "rowsnap: flush failed", append(logAttrs(ctx), "sql", st.SQL, "error", err)...)
		return false, err
	}
	s.log.DebugContext(ctx, "rowsnap: flushed",
		append(logAttrs(ctx), "sql", res.Executed.SQL, "rows", res.RowsAffected, "fallback", res.Fallback)...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range written {
		s.baseline[w.Column] = w.Value
	}
	for _, e := range flushed {
		// A Diff that ran during the flush may have recorded a newer value.
		if cur, ok := s.pending.Get(e.Key); ok && Equal(cur, e.Value) {
			s.pending.Delete(e.Key)
		}
	}
	s.dirty = s.pending.Len() > 0
	s.loaded = true
	return true, nil
}

// statementLocked builds the statement for the pending entries and returns
// the values that become the baseline once it succeeds.
func (s *Snapshot) statementLocked(pending []buffer.Entry[int, any]) (Statement, []Change) {
	cols := s.columns()
	meta := s.metaFor(cols)
	if !s.loaded {
		row := s.rowLocked(cols)
		written := make([]Change, len(cols))
		for i, c := range cols {
			written[i] = Change{Column: c.name, Value: row[i]}
		}
		return InsertStatement(meta, s.cfg.Dialect, row), written
	}
	changes := make([]Change, 0, len(pending))
	for _, e := range pending {
		changes = append(changes, Change{Column: s.meta.Columns[e.Key], Value: e.Value})
	}
	return UpdateStatement(meta, s.cfg.Dialect, s.key, changes, s.rowLocked(cols)), changes
}

// rowLocked resolves a full row: pending, else baseline, else live value.
func (s *Snapshot) rowLocked(cols []column) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		if v, ok := s.pending.Get(c.idx); ok {
			row[i] = v
			continue
		}
		if v, ok := s.baseline[c.name]; ok {
			row[i] = v
			continue
		}
		if v, ok := c.acc.Get(); ok {
			row[i] = clone(v)
		}
	}
	return row
}

// SyncFromModel makes the live field values the new baseline and drops any
// pending changes, without writing.
func (s *Snapshot) SyncFromModel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.columns() {
		if v, ok := c.acc.Get(); ok {
			s.baseline[c.name] = clone(v)
		}
	}
	s.pending.Reset()
	s.dirty = false
}

// Statement returns the statement the next flush would execute, or false when
// nothing is pending.
func (s *Snapshot) Statement() (Statement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending.Entries()
	if len(pending) == 0 {
		return Statement{}, false
	}
	st, _ := s.statementLocked(pending)
	return st, true
}

// columns resolves the accessor of every declared column. Columns without
// one are logged and skipped for this cycle.
func (s *Snapshot) columns() []column {
	cols := make([]column, 0, len(s.meta.Columns))
	for i, name := range s.meta.Columns {
		acc, ok := s.model.Field(name)
		if !ok {
			s.log.Warn("rowsnap: skipping column", "column", name, "error", ErrUnknownColumn)
			continue
		}
		cols = append(cols, column{idx: i, name: name, acc: acc})
	}
	return cols
}

// metaFor narrows the metadata to the resolved columns.
func (s *Snapshot) metaFor(cols []column) Meta {
	m := s.meta
	m.Columns = make([]string, len(cols))
	for i, c := range cols {
		m.Columns[i] = c.name
	}
	return m
}

func (s *Snapshot) Key() any   { return s.key }
func (s *Snapshot) Meta() Meta { return s.meta }

func (s *Snapshot) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Snapshot) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Pending returns the pending changes in column order.
func (s *Snapshot) Pending() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.pending.Entries()
	out := make([]Change, len(es))
	for i, e := range es {
		out[i] = Change{Column: s.meta.Columns[e.Key], Value: e.Value}
	}
	return out
}

// Baseline returns the last persisted values in column order.
func (s *Snapshot) Baseline() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, 0, len(s.baseline))
	for _, name := range s.meta.Columns {
		if v, ok := s.baseline[name]; ok {
			out = append(out, Change{Column: name, Value: v})
		}
	}
	return out
}
