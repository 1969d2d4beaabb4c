package orders_test

import (
	"context"
	"fmt"
	"sort"

	"github.com/jacentio/artcatalog/dal"
	"github.com/jacentio/artcatalog/store"
)

// call records one mutating request made against fakeRecords.
type call struct {
	op    string
	table string
	keys  map[string]any
}

// fakeRecords is an in-memory Records that logs every mutation in order.
type fakeRecords struct {
	tables  map[string][]store.Record
	idCols  map[string]string
	nextID  map[string]int64
	calls   []call
	queries int

	// failDelete, when set, is consulted before every DeleteByKey.
	failDelete func(table string, keys map[string]any) error
	// failFind, when set, is returned from every FindByTemplate.
	failFind error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		tables: map[string][]store.Record{},
		idCols: map[string]string{"orders": "order_id", "order_items": "record_id"},
		nextID: map[string]int64{},
	}
}

func matches(row store.Record, filter map[string]any) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func (f *fakeRecords) FetchAll(ctx context.Context, schema, table string, opts store.ListOptions) ([]store.Record, error) {
	return f.FindByTemplate(ctx, schema, table, nil, opts)
}

func (f *fakeRecords) FindByTemplate(_ context.Context, _, table string, filter map[string]any, opts store.ListOptions) ([]store.Record, error) {
	f.queries++
	if f.failFind != nil {
		return nil, f.failFind
	}

	out := []store.Record{}
	for _, row := range f.tables[table] {
		if matches(row, filter) {
			out = append(out, project(row, opts.Fields))
		}
	}
	if opts.Offset != nil {
		if int(*opts.Offset) >= len(out) {
			return []store.Record{}, nil
		}
		out = out[*opts.Offset:]
	}
	if opts.Limit != nil && int(*opts.Limit) < len(out) {
		out = out[:*opts.Limit]
	}
	return out, nil
}

func project(row store.Record, fields []string) store.Record {
	out := store.Record{}
	if len(fields) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		out[f] = row[f]
	}
	return out
}

func (f *fakeRecords) Create(_ context.Context, _, table string, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, dal.Invalid("no fields")
	}
	f.nextID[table]++
	id := f.nextID[table]

	row := store.Record{}
	for k, v := range fields {
		row[k] = v
	}
	if col, ok := f.idCols[table]; ok {
		row[col] = id
	}
	f.tables[table] = append(f.tables[table], row)
	f.calls = append(f.calls, call{op: "create", table: table, keys: fields})
	return id, nil
}

func (f *fakeRecords) Update(_ context.Context, _, table string, conditions, fields map[string]any) (int64, error) {
	if len(conditions) == 0 {
		return 0, dal.Invalid("no conditions")
	}
	f.calls = append(f.calls, call{op: "update", table: table, keys: conditions})

	var n int64
	for _, row := range f.tables[table] {
		if matches(row, conditions) {
			for k, v := range fields {
				row[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (f *fakeRecords) DeleteByKey(_ context.Context, _, table string, keys map[string]any) (int64, error) {
	if len(keys) == 0 {
		return 0, dal.Invalid("no keys")
	}
	if f.failDelete != nil {
		if err := f.failDelete(table, keys); err != nil {
			return 0, err
		}
	}
	f.calls = append(f.calls, call{op: "delete", table: table, keys: keys})

	var kept []store.Record
	var n int64
	for _, row := range f.tables[table] {
		if matches(row, keys) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	f.tables[table] = kept
	return n, nil
}

func (f *fakeRecords) deletes() []call {
	var out []call
	for _, c := range f.calls {
		if c.op == "delete" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRecords) itemIDs(orderID int64) []string {
	var ids []string
	for _, row := range f.tables["order_items"] {
		if fmt.Sprint(row["order_id"]) == fmt.Sprint(orderID) {
			ids = append(ids, fmt.Sprint(row["item_id"]))
		}
	}
	sort.Strings(ids)
	return ids
}
