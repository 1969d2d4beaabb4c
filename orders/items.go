package orders

import (
	"context"
	"fmt"

	"github.com/jacentio/artcatalog/dal"
	"github.com/jacentio/artcatalog/store"
)

// ItemLocation points at an order item written by AddItemToOrder.
type ItemLocation struct {
	OrderID  int64  `json:"order_id"`
	ItemID   int64  `json:"item_id"`
	RecordID int64  `json:"record_id"`
	Href     string `json:"href"`
}

// AddItemToOrder writes an order item, replacing any existing row with the
// same (order, item) key. info must carry both key columns as integers.
func (s *Service) AddItemToOrder(ctx context.Context, info map[string]any) (ItemLocation, error) {
	rec := store.Record(info)
	orderID, ok := rec.Int64(s.rel.ParentKeyAttr)
	if !ok {
		return ItemLocation{}, dal.Invalid("%s must be an integer", s.rel.ParentKeyAttr)
	}
	itemID, ok := rec.Int64(s.rel.ChildKeyAttr)
	if !ok {
		return ItemLocation{}, dal.Invalid("%s must be an integer", s.rel.ChildKeyAttr)
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return ItemLocation{}, err
	}

	// Replace, not duplicate: drop the existing row before inserting.
	if _, err := s.records.DeleteByKey(ctx, s.rel.Schema, s.rel.ChildTable, s.rel.childKey(orderID, itemID)); err != nil {
		return ItemLocation{}, err
	}

	fields := make(map[string]any, len(info))
	for k, v := range info {
		fields[k] = v
	}
	fields[s.rel.ParentKeyAttr] = orderID
	fields[s.rel.ChildKeyAttr] = itemID

	recordID, err := s.records.Create(ctx, s.rel.Schema, s.rel.ChildTable, fields)
	if err != nil {
		return ItemLocation{}, err
	}

	return ItemLocation{
		OrderID:  orderID,
		ItemID:   itemID,
		RecordID: recordID,
		Href:     itemHref(orderID, itemID),
	}, nil
}

// ListItemsInOrder returns the item rows of an existing order.
func (s *Service) ListItemsInOrder(ctx context.Context, orderID int64, opts store.ListOptions) ([]store.Record, error) {
	if err := s.requireOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ChildTable, s.rel.parentKey(orderID), opts)
}

// ListItemLinks returns only link references to the items of an existing order.
func (s *Service) ListItemLinks(ctx context.Context, orderID int64) ([]Link, error) {
	if err := s.requireOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.itemLinks(ctx, orderID)
}

// GetItemInOrder returns the item row. It fails with dal.ErrNotFound when the
// order is absent and reports found=false when the order exists without the item.
func (s *Service) GetItemInOrder(ctx context.Context, orderID, itemID int64) (store.Record, bool, error) {
	if err := s.requireOrder(ctx, orderID); err != nil {
		return nil, false, err
	}

	rows, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ChildTable,
		s.rel.childKey(orderID, itemID), store.ListOptions{Limit: store.Int64(1)})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// RemoveItemFromOrder deletes an item from an existing order. It reports
// whether a row was removed; removing an absent item is a no-op.
func (s *Service) RemoveItemFromOrder(ctx context.Context, orderID, itemID int64) (bool, error) {
	if err := s.requireOrder(ctx, orderID); err != nil {
		return false, err
	}

	n, err := s.records.DeleteByKey(ctx, s.rel.Schema, s.rel.ChildTable, s.rel.childKey(orderID, itemID))
	if err != nil {
		return false, fmt.Errorf("remove item %d from order %d: %w", itemID, orderID, err)
	}
	return n > 0, nil
}
