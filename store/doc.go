// Package store provides a relational record store built on template-driven queries.
//
// Each operation takes a schema and table name and acquires its own connection
// from the pool, releasing it on every exit path. Reads are expressed as filter
// templates (column -> required value, AND-ed together), so no caller ever
// writes SQL:
//
//	rows, err := s.FindByTemplate(ctx, "art_catalog", "order_items",
//	    map[string]any{"order_id": int64(1)},
//	    store.ListOptions{Limit: store.Int64(10)})
//
// # Operations
//
//   - [Store.FetchAll] - every row, paginated and projected
//   - [Store.FindByTemplate] - rows matching a filter template
//   - [Store.FindByPrefix] - rows whose column starts with a prefix
//   - [Store.Create] - insert, returns the generated row id
//   - [Store.Update] - conditional update, returns rows affected
//   - [Store.DeleteByKey] - delete by composite key, returns rows affected
//
// # Errors
//
// Malformed requests (bad identifiers, negative pagination, an update or delete
// without conditions) fail with [dal.ErrInvalidInput]. Every database failure is
// returned as a [*dal.StoreError] carrying the driver's error as its cause.
package store
