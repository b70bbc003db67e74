package parts

import (
	"context"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/pubsub"
	"github.com/google/uuid"
)

// LowStockEvent is the payload of an inventory.low_stock message.
type LowStockEvent struct {
	PartID           uuid.UUID `json:"part_id"`
	OEMPartNumber    string    `json:"oem_part_number"`
	Description      string    `json:"description"`
	Quantity         int       `json:"quantity"`
	ReorderThreshold int       `json:"reorder_threshold"`
}

// LowStockNotifier publishes a reorder alert for parts at or below threshold.
type LowStockNotifier struct {
	publisher pubsub.EventPublisher
	logg      *logger.Logger
}

// NewLowStockNotifier falls back to a no-op publisher when none is configured.
func NewLowStockNotifier(publisher pubsub.EventPublisher, logg *logger.Logger) *LowStockNotifier {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	return &LowStockNotifier{publisher: publisher, logg: logg}
}

// NotifyIfLow publishes one event when part is at or below its reorder
// threshold. Failures are logged and swallowed. It reports whether an event
// was published.
func (n *LowStockNotifier) NotifyIfLow(ctx context.Context, part *models.Part) bool {
	if n == nil || part == nil || !part.BelowThreshold() {
		return false
	}
	event := LowStockEvent{
		PartID:           part.ID,
		OEMPartNumber:    part.OEMPartNumber,
		Description:      part.Description,
		Quantity:         part.Quantity,
		ReorderThreshold: part.ReorderThreshold,
	}
	if err := n.publisher.Publish(ctx, pubsub.EventLowStock, event); err != nil {
		if n.logg != nil {
			n.logg.Error(n.logg.WithField(ctx, "part_id", part.ID.String()), "part.low_stock.publish_failed", err)
		}
		return false
	}
	return true
}
