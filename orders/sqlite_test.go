package orders_test

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/artcatalog/dal"
	"github.com/jacentio/artcatalog/orders"
	"github.com/jacentio/artcatalog/store"
)

func newSQLiteService(t *testing.T) *orders.Service {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE orders (
			order_id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id TEXT NOT NULL,
			datetime_placed TEXT
		)`,
		`CREATE TABLE order_items (
			record_id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			quantity INTEGER
		)`,
	} {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	return orders.NewService(store.New(db, nil), orders.Relationship{Schema: "main"}, nil)
}

func TestSQLite_OrderLifecycle(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	loc, err := s.CreateOrder(ctx, map[string]any{"customer_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), loc.OrderID)

	_, err = s.AddItemToOrder(ctx, map[string]any{"order_id": int64(1), "item_id": int64(5), "quantity": 2})
	require.NoError(t, err)

	items, err := s.ListItemsInOrder(ctx, 1, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0]["quantity"])

	removed, err := s.RemoveItemFromOrder(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveItemFromOrder(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLite_DeleteOrderCascades(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	a, err := s.CreateOrder(ctx, map[string]any{"customer_id": "u1", "datetime_placed": "2024-03-01T10:00:00Z"})
	require.NoError(t, err)
	b, err := s.CreateOrder(ctx, map[string]any{"customer_id": "u2"})
	require.NoError(t, err)
	for _, item := range []int64{1, 2, 3} {
		_, err := s.AddItemToOrder(ctx, map[string]any{"order_id": a.OrderID, "item_id": item, "quantity": 1})
		require.NoError(t, err)
	}
	_, err = s.AddItemToOrder(ctx, map[string]any{"order_id": b.OrderID, "item_id": int64(1), "quantity": 4})
	require.NoError(t, err)

	order, err := s.GetOrder(ctx, a.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 10:00:00", order.Fields["datetime_placed"])
	assert.Len(t, order.Links, 3)

	require.NoError(t, s.DeleteOrder(ctx, a.OrderID))

	_, err = s.GetOrder(ctx, a.OrderID)
	assert.ErrorIs(t, err, dal.ErrNotFound)

	err = s.DeleteOrder(ctx, a.OrderID)
	assert.ErrorIs(t, err, dal.ErrNotFound)

	items, err := s.ListItemsInOrder(ctx, b.OrderID, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	report, err := s.RepairOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders.RepairReport{ItemsScanned: 1}, report)
}

func TestSQLite_UpdateOrder(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	loc, err := s.CreateOrder(ctx, map[string]any{"customer_id": "u1"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrder(ctx, loc.OrderID, map[string]any{"customer_id": "u9"}))

	list, err := s.ListOrders(ctx, orders.ListOptions{CustomerID: "u9"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Links)

	err = s.UpdateOrder(ctx, 77, map[string]any{"customer_id": "u9"})
	assert.ErrorIs(t, err, dal.ErrNotFound)
}
