package sweeper

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/angelmondragon/fleetshop-backend/pkg/metrics"
)

const LowStockJobName = "low_stock"

type belowThresholdLister interface {
	ListBelowThreshold(ctx context.Context) ([]models.Part, error)
}

type lowStockNotifier interface {
	NotifyIfLow(ctx context.Context, part *models.Part) bool
}

// LowStockJob re-publishes reorder alerts for every part at or below its
// threshold, catching stock that was adjusted outside of draft submits.
type LowStockJob struct {
	parts    belowThresholdLister
	notifier lowStockNotifier
	metrics  *metrics.SweepMetrics
	logg     *logger.Logger
}

func NewLowStockJob(parts belowThresholdLister, notifier lowStockNotifier, m *metrics.SweepMetrics, logg *logger.Logger) (*LowStockJob, error) {
	if parts == nil {
		return nil, fmt.Errorf("parts lister required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("low stock notifier required")
	}
	return &LowStockJob{parts: parts, notifier: notifier, metrics: m, logg: logg}, nil
}

func (j *LowStockJob) Name() string { return LowStockJobName }

func (j *LowStockJob) Run(ctx context.Context) error {
	rows, err := j.parts.ListBelowThreshold(ctx)
	if err != nil {
		return fmt.Errorf("list parts below threshold: %w", err)
	}
	published := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if j.notifier.NotifyIfLow(ctx, &rows[i]) {
			published++
		}
	}
	j.metrics.AddAlerts(published)
	if j.logg != nil {
		ctx = j.logg.WithFields(ctx, map[string]any{
			"parts_low": len(rows),
			"published": published,
		})
		j.logg.Info(ctx, "low stock sweep finished")
	}
	return nil
}
