// Package sweep runs the orphaned order item repair on a schedule.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/artcatalog/orders"
)

// Repairer removes order items whose order no longer exists.
type Repairer interface {
	RepairOrphans(ctx context.Context) (orders.RepairReport, error)
}

// Handler processes scheduled EventBridge events by running one repair pass.
type Handler struct {
	repairer Repairer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHandler creates a new sweep handler. A zero timeout leaves the
// invocation deadline as the only bound.
func NewHandler(r Repairer, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repairer: r,
		timeout:  timeout,
		logger:   logger,
	}
}

// HandleScheduledRepair runs one repair pass. It is meant to be the AWS
// Lambda handler of a scheduled rule.
//
// Items that fail to delete are logged and left for the next run; only a
// failure to scan or to check an order fails the invocation.
func (h *Handler) HandleScheduledRepair(ctx context.Context, event events.CloudWatchEvent) (orders.RepairReport, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.logger.InfoContext(ctx, "starting orphan sweep",
		"eventID", event.ID,
		"detailType", event.DetailType,
		"scheduledAt", event.Time,
	)

	report, err := h.repairer.RepairOrphans(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "orphan sweep failed",
			"eventID", event.ID,
			"itemsDeleted", report.ItemsDeleted,
			"error", err,
		)
		return report, fmt.Errorf("repair orphans: %w", err)
	}

	if report.ItemsFailed > 0 {
		h.logger.WarnContext(ctx, "orphan sweep left items behind",
			"eventID", event.ID,
			"itemsFailed", report.ItemsFailed,
		)
	}
	return report, nil
}
