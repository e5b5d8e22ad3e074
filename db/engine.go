package db

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/op"
	"github.com/nickyhof/SheetDB/query"
)

// Engine runs select and mutation operations against a table store. It
// keeps no state between calls: every scanning operation reads a fresh
// snapshot and writes by the positions found in it. Callers must ensure a
// single writer per table.
type Engine struct {
	store  op.Store
	logger *slog.Logger
	newID  func() string
	s3     *S3Config
}

type Option func(*Engine)

// WithLogger sets the logger used for mutation traces. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithIDGenerator replaces the id generator used by Insert. The default
// produces random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(engine *Engine) {
		if newID != nil {
			engine.newID = newID
		}
	}
}

func NewEngine(store op.Store, opts ...Option) *Engine {
	engine := &Engine{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (engine *Engine) Store() op.Store {
	return engine.store
}

// CreateTable declares a table. The id column is added first when columns
// does not name it. When the table already exists its current definition is
// returned with created set to false.
func (engine *Engine) CreateTable(name string, columns []string) (table core.Table, created bool, err error) {
	tableOp, created, err := op.CreateTable(name, columns, engine.store)
	if err != nil {
		return core.Table{}, false, err
	}
	engine.logger.Debug("mutation", "op", "create_table", "table", name, "created", created)
	return tableOp.Table, created, nil
}

// Tables lists every table in the store.
func (engine *Engine) Tables() ([]string, error) {
	return engine.store.ListTables()
}

// batched runs fn so that its writes land as one change when the store
// supports batching, and write by write otherwise.
func (engine *Engine) batched(message string, fn func(store op.Store) error) error {
	if batcher, ok := engine.store.(op.Batcher); ok {
		return batcher.Batch(message, fn)
	}
	return fn(engine.store)
}

// scan resolves the table, compiles q and reads one snapshot.
func (engine *Engine) scan(store op.Store, table string, q query.Query) (*op.TableOp, *query.Matcher, []core.Document, error) {
	tableOp, err := op.GetTable(table, store)
	if err != nil {
		return nil, nil, nil, err
	}

	matcher, err := query.Compile(q)
	if err != nil {
		return nil, nil, nil, err
	}

	docs, err := tableOp.Snapshot()
	if err != nil {
		return nil, nil, nil, err
	}
	return tableOp, matcher, docs, nil
}

// Select returns the documents matching q, ordered ascending by
// opts.OrderBy when set and truncated to opts.Limit when positive. Each
// document carries its physical row position.
func (engine *Engine) Select(table string, q query.Query, opts core.Options) ([]core.Document, error) {
	_, matcher, docs, err := engine.scan(engine.store, table, q)
	if err != nil {
		return nil, err
	}

	results := make([]core.Document, 0, len(docs))
	for _, doc := range docs {
		if matcher.Matches(doc) {
			results = append(results, doc)
		}
	}

	if opts.OrderBy != "" {
		sortDocuments(results, opts.OrderBy)
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// sortDocuments orders docs ascending by column. Ties and values that cannot
// be ordered keep their relative order.
func sortDocuments(docs []core.Document, column string) {
	sort.SliceStable(docs, func(i, j int) bool {
		return query.Compare(docs[i].Fields[column], docs[j].Fields[column]) < 0
	})
}

// Insert appends data as a new row. A generated id is assigned when data has
// no id or an empty one. Fields that are not table headers are kept in the
// returned document but not stored. Duplicate ids are not checked.
func (engine *Engine) Insert(table string, data map[string]any) (core.Document, error) {
	return engine.insert(engine.store, table, data)
}

func (engine *Engine) insert(store op.Store, table string, data map[string]any) (core.Document, error) {
	tableOp, err := op.GetTable(table, store)
	if err != nil {
		return core.Document{}, err
	}

	doc := core.NewDocument(data).Clone()
	if id := doc.ID(); id == nil || id == "" {
		doc.Fields[core.IDColumn] = engine.newID()
	}

	if err := tableOp.Append(doc.Fields); err != nil {
		return core.Document{}, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	engine.logger.Debug("mutation", "op", "insert", "table", table, "id", doc.ID())
	return doc, nil
}

// Update writes patch values into every row matching q and returns the
// number of matching rows. A header is written only when patch holds a
// non-nil value for it. Zero, "" and false are written. The id column is
// never written. A batching store records the writes as one change.
func (engine *Engine) Update(table string, q query.Query, patch map[string]any) (int, error) {
	matched := 0
	err := engine.batched(fmt.Sprintf("Updating rows in %s", table), func(store op.Store) error {
		tableOp, matcher, docs, err := engine.scan(store, table, q)
		if err != nil {
			return err
		}

		for _, doc := range docs {
			if !matcher.Matches(doc) {
				continue
			}
			matched++

			for _, header := range tableOp.Headers() {
				if header == core.IDColumn {
					continue
				}
				value, ok := patch[header]
				if !ok || value == nil {
					continue
				}
				if err := tableOp.WriteCell(doc.Row, header, value); err != nil {
					return fmt.Errorf("failed to update %s row %d: %w", table, doc.Row, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	engine.logger.Debug("mutation", "op", "update", "table", table, "matched", matched)
	return matched, nil
}

// DeleteRow removes every row matching q and returns how many were removed.
// Rows are visited last to first so earlier positions stay valid.
func (engine *Engine) DeleteRow(table string, q query.Query) (int, error) {
	deleted := 0
	err := engine.batched(fmt.Sprintf("Deleting rows from %s", table), func(store op.Store) error {
		tableOp, matcher, docs, err := engine.scan(store, table, q)
		if err != nil {
			return err
		}

		for i := len(docs) - 1; i >= 0; i-- {
			doc := docs[i]
			if !matcher.Matches(doc) {
				continue
			}
			if err := tableOp.DeleteAt(doc.Row); err != nil {
				return fmt.Errorf("failed to delete %s row %d: %w", table, doc.Row, err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	engine.logger.Debug("mutation", "op", "delete", "table", table, "matched", deleted)
	return deleted, nil
}

// Upsert updates the rows matching q, or inserts a new document built from
// q's equality values overlaid with patch when nothing matches.
func (engine *Engine) Upsert(table string, q query.Query, patch map[string]any) (UpsertResult, error) {
	existing, err := engine.Select(table, q, core.Options{})
	if err != nil {
		return UpsertResult{}, err
	}

	if len(existing) > 0 {
		count, err := engine.Update(table, q, patch)
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Kind: Updated, Count: count}, nil
	}

	merged := query.Equalities(q)
	for key, value := range patch {
		merged[key] = value
	}

	doc, err := engine.Insert(table, merged)
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Kind: Inserted, Count: 1, Document: &doc}, nil
}
