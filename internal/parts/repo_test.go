package parts

import (
	"context"
	"testing"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:parts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Part{}))
	return db
}

func seedPart(t *testing.T, repo *Repository, oem string, qty, threshold int, category string) *models.Part {
	t.Helper()
	part, err := repo.Create(context.Background(), &models.Part{
		OEMPartNumber:    oem,
		Description:      "part " + oem,
		Category:         category,
		UnitCost:         decimal.RequireFromString("12.50"),
		Quantity:         qty,
		ReorderThreshold: threshold,
	})
	require.NoError(t, err)
	return part
}

func TestRepositoryQueries(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	vehicleID := uuid.New()
	seedPart(t, repo, "A-1", 10, 2, "filters")
	seedPart(t, repo, "B-2", 0, 1, "filters")
	low := seedPart(t, repo, "C-3", 3, 3, "brakes")
	low.VehicleID = &vehicleID
	_, err := repo.Update(ctx, low)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inStock, err := repo.ListInStock(ctx)
	require.NoError(t, err)
	assert.Len(t, inStock, 2)
	for _, p := range inStock {
		assert.Greater(t, p.Quantity, 0)
	}

	filters, err := repo.ListByCategory(ctx, "filters")
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	below, err := repo.ListBelowThreshold(ctx)
	require.NoError(t, err)
	require.Len(t, below, 2)

	byVehicle, err := repo.ListByVehicle(ctx, vehicleID)
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)
	assert.Equal(t, "C-3", byVehicle[0].OEMPartNumber)
}

func TestRepositoryDecrementStockFloorsAtZero(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	part := seedPart(t, repo, "A-1", 4, 1, "")

	updated, err := repo.DecrementStock(ctx, part.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)

	updated, err = repo.DecrementStock(ctx, part.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)

	reloaded, err := repo.FindByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Quantity)

	_, err = repo.DecrementStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySetInvoice(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	part := seedPart(t, repo, "A-1", 1, 0, "")

	number := "INV-9"
	require.NoError(t, repo.SetInvoice(ctx, part.ID, &number, "https://example/x", "invoices/x.pdf"))

	reloaded, err := repo.FindByID(ctx, part.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.InvoiceKey)
	assert.Equal(t, "invoices/x.pdf", *reloaded.InvoiceKey)
	assert.Equal(t, "INV-9", *reloaded.InvoiceNumber)

	assert.ErrorIs(t, repo.SetInvoice(ctx, uuid.New(), nil, "u", "k"), gorm.ErrRecordNotFound)
}
