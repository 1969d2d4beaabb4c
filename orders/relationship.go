package orders

// Relationship describes the unenforced parent/child link between orders and order items.
type Relationship struct {
	// Schema is the database schema holding both tables.
	// Default: "art_catalog"
	Schema string

	// ParentTable is the order table. Default: "orders"
	ParentTable string

	// ChildTable is the order item table. Default: "order_items"
	ChildTable string

	// ParentKeyAttr is the order key column, present in both tables. Default: "order_id"
	ParentKeyAttr string

	// ChildKeyAttr is the item column that, with ParentKeyAttr, keys a child row. Default: "item_id"
	ChildKeyAttr string

	// CustomerAttr is the order column identifying the customer. Default: "customer_id"
	CustomerAttr string

	// PlacedAttr is the order placement timestamp column. Default: "datetime_placed"
	PlacedAttr string
}

// DefaultRelationship returns the art catalog order/order item layout.
func DefaultRelationship() Relationship {
	return Relationship{
		Schema:        "art_catalog",
		ParentTable:   "orders",
		ChildTable:    "order_items",
		ParentKeyAttr: "order_id",
		ChildKeyAttr:  "item_id",
		CustomerAttr:  "customer_id",
		PlacedAttr:    "datetime_placed",
	}
}

// validate fills empty fields with defaults. Schema may stay empty
// for databases without schema qualification.
func (r *Relationship) validate() {
	d := DefaultRelationship()
	if r.ParentTable == "" {
		r.ParentTable = d.ParentTable
	}
	if r.ChildTable == "" {
		r.ChildTable = d.ChildTable
	}
	if r.ParentKeyAttr == "" {
		r.ParentKeyAttr = d.ParentKeyAttr
	}
	if r.ChildKeyAttr == "" {
		r.ChildKeyAttr = d.ChildKeyAttr
	}
	if r.CustomerAttr == "" {
		r.CustomerAttr = d.CustomerAttr
	}
	if r.PlacedAttr == "" {
		r.PlacedAttr = d.PlacedAttr
	}
}

// writable reports whether column may be changed by UpdateOrder.
func (r Relationship) writable(column string) bool {
	return column == r.CustomerAttr || column == r.PlacedAttr
}

// childKey returns the composite key of one order item.
func (r Relationship) childKey(orderID int64, itemID any) map[string]any {
	return map[string]any{
		r.ParentKeyAttr: orderID,
		r.ChildKeyAttr:  itemID,
	}
}

func (r Relationship) parentKey(orderID int64) map[string]any {
	return map[string]any{r.ParentKeyAttr: orderID}
}
