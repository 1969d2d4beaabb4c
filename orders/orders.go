// Package orders enforces the order / order item relationship on top of a
// relational record store that has no foreign key constraints.
//
// Every rule about the relationship lives here: children require an existing
// parent, a parent is deleted only after its children, and order
// representations carry links to their items.
//
// None of the multi-statement operations are transactional. DeleteOrder issues
// one delete per child and then one for the parent; a crash in between leaves
// orphaned items, which [Service.RepairOrphans] removes after the fact. An
// existence check and the mutation that follows it can also race with a
// concurrent delete.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jacentio/artcatalog/dal"
	"github.com/jacentio/artcatalog/store"
)

// LinksField is the pseudo-column that requests item links in a projection.
const LinksField = "links"

// timestampLayout is the literal date/time format written to the placement column.
const timestampLayout = "2006-01-02 15:04:05"

// Records is the subset of the relational record store the orchestrator needs.
type Records interface {
	FetchAll(ctx context.Context, schema, table string, opts store.ListOptions) ([]store.Record, error)
	FindByTemplate(ctx context.Context, schema, table string, filter map[string]any, opts store.ListOptions) ([]store.Record, error)
	Create(ctx context.Context, schema, table string, fields map[string]any) (int64, error)
	Update(ctx context.Context, schema, table string, conditions, fields map[string]any) (int64, error)
	DeleteByKey(ctx context.Context, schema, table string, keys map[string]any) (int64, error)
}

// Link is a hyperlink-style reference to a related resource.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// Order is an order row plus links to its items.
type Order struct {
	Fields store.Record
	Links  []Link
}

// MarshalJSON flattens Fields and adds a "links" member when links were requested.
func (o Order) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Fields)+1)
	for k, v := range o.Fields {
		out[k] = v
	}
	if o.Links != nil {
		out[LinksField] = o.Links
	}
	return json.Marshal(out)
}

// Location points at a newly created order.
type Location struct {
	OrderID int64  `json:"order_id"`
	Href    string `json:"href"`
}

// ListOptions controls ListOrders.
type ListOptions struct {
	Offset *int64
	Limit  *int64

	// Fields is the column projection. Empty, or containing LinksField,
	// attaches item links to every order.
	Fields []string

	// CustomerID restricts the listing to one customer when set.
	CustomerID string
}

// Service is the referential integrity orchestrator for orders and their items.
type Service struct {
	records Records
	rel     Relationship
	logger  *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(records Records, rel Relationship, logger *slog.Logger) *Service {
	rel.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records: records,
		rel:     rel,
		logger:  logger,
	}
}

// Relationship returns the table layout the service operates on.
func (s *Service) Relationship() Relationship {
	return s.rel
}

// OrderExists reports whether an order row with orderID exists.
func (s *Service) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	rows, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ParentTable,
		s.rel.parentKey(orderID),
		store.ListOptions{Limit: store.Int64(1), Fields: []string{s.rel.ParentKeyAttr}})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// requireOrder returns dal.ErrNotFound when orderID does not exist.
func (s *Service) requireOrder(ctx context.Context, orderID int64) error {
	ok, err := s.OrderExists(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, dal.ErrNotFound)
	}
	return nil
}

// ListOrders lists orders, optionally for one customer.
//
// When links are requested each order costs one extra child query (N+1).
// This keeps the layer simple and is the known scaling limit of listings.
func (s *Service) ListOrders(ctx context.Context, opts ListOptions) ([]Order, error) {
	wantLinks, fields := s.projection(opts.Fields)

	var filter map[string]any
	if opts.CustomerID != "" {
		filter = map[string]any{s.rel.CustomerAttr: opts.CustomerID}
	}

	rows, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ParentTable, filter,
		store.ListOptions{Offset: opts.Offset, Limit: opts.Limit, Fields: fields})
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(rows))
	for _, row := range rows {
		order := Order{Fields: row}
		if wantLinks {
			if order.Links, err = s.linksFor(ctx, row); err != nil {
				return nil, err
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// GetOrder returns one order with its item links, or dal.ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	rows, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ParentTable,
		s.rel.parentKey(orderID), store.ListOptions{Limit: store.Int64(1)})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("order %d: %w", orderID, dal.ErrNotFound)
	}

	links, err := s.itemLinks(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Order{Fields: rows[0], Links: links}, nil
}

// CreateOrder inserts a new order and returns a reference to it.
func (s *Service) CreateOrder(ctx context.Context, info map[string]any) (Location, error) {
	if len(info) == 0 {
		return Location{}, dal.Invalid("order information is required")
	}
	fields, err := s.normalizeTimestamps(info)
	if err != nil {
		return Location{}, err
	}

	id, err := s.records.Create(ctx, s.rel.Schema, s.rel.ParentTable, fields)
	if err != nil {
		return Location{}, err
	}

	s.logger.InfoContext(ctx, "order created", "orderID", id)
	return Location{OrderID: id, Href: orderHref(id)}, nil
}

// UpdateOrder changes whitelisted columns of an existing order.
// fields are validated before the order is looked up, so invalid fields
// report dal.ErrInvalidInput even when the order does not exist.
func (s *Service) UpdateOrder(ctx context.Context, orderID int64, fields map[string]any) error {
	if len(fields) == 0 {
		return dal.Invalid("no fields to update")
	}
	for k := range fields {
		if !s.rel.writable(k) {
			return dal.Invalid("field %q is not writable", k)
		}
	}
	update, err := s.normalizeTimestamps(fields)
	if err != nil {
		return err
	}

	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	_, err = s.records.Update(ctx, s.rel.Schema, s.rel.ParentTable, s.rel.parentKey(orderID), update)
	return err
}

// DeleteOrder deletes every item of the order and then the order itself.
// Children always go first so no item is left pointing at a missing order
// unless the sequence is interrupted.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.requireOrder(ctx, orderID); err != nil {
		return err
	}

	children, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ChildTable,
		s.rel.parentKey(orderID),
		store.ListOptions{Fields: []string{s.rel.ParentKeyAttr, s.rel.ChildKeyAttr}})
	if err != nil {
		return err
	}

	for _, child := range children {
		itemID := child[s.rel.ChildKeyAttr]
		if _, err := s.records.DeleteByKey(ctx, s.rel.Schema, s.rel.ChildTable, s.rel.childKey(orderID, itemID)); err != nil {
			s.logger.ErrorContext(ctx, "cascade delete interrupted",
				"orderID", orderID,
				"itemID", itemID,
				"error", err,
			)
			return fmt.Errorf("delete item %v of order %d: %w", itemID, orderID, err)
		}
	}

	if _, err := s.records.DeleteByKey(ctx, s.rel.Schema, s.rel.ParentTable, s.rel.parentKey(orderID)); err != nil {
		s.logger.ErrorContext(ctx, "order delete failed after children removed",
			"orderID", orderID,
			"childrenDeleted", len(children),
			"error", err,
		)
		return err
	}

	s.logger.InfoContext(ctx, "order deleted",
		"orderID", orderID,
		"childrenDeleted", len(children),
	)
	return nil
}

// projection splits a requested field list into whether links are wanted and
// the columns to select. The key column is kept whenever links are needed.
func (s *Service) projection(requested []string) (bool, []string) {
	if len(requested) == 0 {
		return true, nil
	}

	wantLinks := slices.Contains(requested, LinksField)
	fields := make([]string, 0, len(requested)+1)
	for _, f := range requested {
		if f != LinksField {
			fields = append(fields, f)
		}
	}
	if wantLinks && !slices.Contains(fields, s.rel.ParentKeyAttr) {
		fields = append(fields, s.rel.ParentKeyAttr)
	}
	return wantLinks, fields
}

func (s *Service) linksFor(ctx context.Context, row store.Record) ([]Link, error) {
	orderID, ok := row.Int64(s.rel.ParentKeyAttr)
	if !ok {
		return nil, dal.Wrap("list orders", fmt.Errorf("order row without numeric %s", s.rel.ParentKeyAttr))
	}
	return s.itemLinks(ctx, orderID)
}

// itemLinks builds link rows for the items of orderID without checking that the order exists.
func (s *Service) itemLinks(ctx context.Context, orderID int64) ([]Link, error) {
	rows, err := s.records.FindByTemplate(ctx, s.rel.Schema, s.rel.ChildTable,
		s.rel.parentKey(orderID), store.ListOptions{Fields: []string{s.rel.ChildKeyAttr}})
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, Link{
			Href: itemHref(orderID, row[s.rel.ChildKeyAttr]),
			Rel:  "order_item",
		})
	}
	return links, nil
}

// normalizeTimestamps returns a copy of fields with the placement column
// rendered as a literal date/time string.
func (s *Service) normalizeTimestamps(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	v, ok := out[s.rel.PlacedAttr]
	if !ok || v == nil {
		return out, nil
	}
	ts, err := quoteTimestamp(v)
	if err != nil {
		return nil, dal.Invalid("%s: %v", s.rel.PlacedAttr, err)
	}
	out[s.rel.PlacedAttr] = ts
	return out, nil
}

var timestampInputs = []string{time.RFC3339Nano, timestampLayout, "2006-01-02T15:04:05", "2006-01-02"}

func quoteTimestamp(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timestampLayout), nil
	case string:
		for _, layout := range timestampInputs {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC().Format(timestampLayout), nil
			}
		}
		return "", fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return "", fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func orderHref(orderID int64) string {
	return fmt.Sprintf("/orders/%d", orderID)
}

func itemHref(orderID int64, itemID any) string {
	return fmt.Sprintf("/orders/%d/orderitems/%v", orderID, itemID)
}
