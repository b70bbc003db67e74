package drafts

import (
	"context"
	"sort"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotEntry is a part's availability as seen by one editing session.
// Initial is the quantity read when the session started.
type SnapshotEntry struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	OEMNumber   string          `json:"oem_part_number"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Available   int             `json:"available"`
	Initial     int             `json:"initial"`
}

// Snapshot is the session-local projection of stocked parts, keyed by part id.
type Snapshot map[uuid.UUID]*SnapshotEntry

// PartSource lists the parts that currently have positive stock.
type PartSource interface {
	ListInStock(ctx context.Context) ([]models.Part, error)
}

// LoadSnapshot reads every in-stock part once. Parts reported with a
// non-positive quantity are skipped.
func LoadSnapshot(ctx context.Context, source PartSource) (Snapshot, error) {
	rows, err := source.ListInStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "inventory unavailable")
	}
	snap := make(Snapshot, len(rows))
	for _, p := range rows {
		if p.Quantity <= 0 {
			continue
		}
		snap[p.ID] = &SnapshotEntry{
			ID:          p.ID,
			Description: p.Description,
			OEMNumber:   p.OEMPartNumber,
			UnitCost:    p.UnitCost,
			Available:   p.Quantity,
			Initial:     p.Quantity,
		}
	}
	return snap, nil
}

// Available returns the current availability of a part, zero when absent.
func (s Snapshot) Available(partID uuid.UUID) int {
	if entry, ok := s[partID]; ok {
		return entry.Available
	}
	return 0
}

// Entries returns the snapshot sorted by description for display.
func (s Snapshot) Entries() []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(s))
	for _, entry := range s {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Description == out[j].Description {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Description < out[j].Description
	})
	return out
}
