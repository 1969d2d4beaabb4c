package orders

import (
	"context"
	"fmt"

	"github.com/jacentio/artcatalog/store"
)

// RepairReport summarizes one orphan sweep.
type RepairReport struct {
	// ItemsScanned is the number of order item rows examined.
	ItemsScanned int

	// OrphanedOrders is the number of distinct missing orders that still had items.
	OrphanedOrders int

	// ItemsDeleted is the number of orphaned item rows removed.
	ItemsDeleted int

	// ItemsFailed is the number of orphaned item rows that could not be removed.
	ItemsFailed int
}

// RepairOrphans deletes order items whose order no longer exists, such as
// those left behind by an interrupted DeleteOrder. It is idempotent and keeps
// going past individual delete failures, which are counted in the report.
func (s *Service) RepairOrphans(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	rows, err := s.records.FetchAll(ctx, s.rel.Schema, s.rel.ChildTable,
		store.ListOptions{Fields: []string{s.rel.ParentKeyAttr, s.rel.ChildKeyAttr}})
	if err != nil {
		return report, fmt.Errorf("scan items: %w", err)
	}
	report.ItemsScanned = len(rows)

	byOrder := make(map[int64][]any)
	var orderIDs []int64
	for _, row := range rows {
		orderID, ok := row.Int64(s.rel.ParentKeyAttr)
		if !ok {
			s.logger.WarnContext(ctx, "skipping item row without numeric order key", "row", row)
			continue
		}
		if _, seen := byOrder[orderID]; !seen {
			orderIDs = append(orderIDs, orderID)
		}
		byOrder[orderID] = append(byOrder[orderID], row[s.rel.ChildKeyAttr])
	}

	for _, orderID := range orderIDs {
		exists, err := s.OrderExists(ctx, orderID)
		if err != nil {
			return report, fmt.Errorf("check order %d: %w", orderID, err)
		}
		if exists {
			continue
		}

		report.OrphanedOrders++
		for _, itemID := range byOrder[orderID] {
			if _, err := s.records.DeleteByKey(ctx, s.rel.Schema, s.rel.ChildTable, s.rel.childKey(orderID, itemID)); err != nil {
				s.logger.WarnContext(ctx, "failed to delete orphaned item",
					"orderID", orderID,
					"itemID", itemID,
					"error", err,
				)
				report.ItemsFailed++
				continue
			}
			report.ItemsDeleted++
		}
	}

	s.logger.InfoContext(ctx, "orphan repair completed",
		"itemsScanned", report.ItemsScanned,
		"orphanedOrders", report.OrphanedOrders,
		"itemsDeleted", report.ItemsDeleted,
		"itemsFailed", report.ItemsFailed,
	)
	return report, nil
}
