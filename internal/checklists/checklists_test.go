package checklists

import (
	"context"
	"testing"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:checklists_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Checklist{}))
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetChecklistMissingReturnsEmpty(t *testing.T) {
	svc := newTestService(t)

	tasks, err := svc.GetChecklist(context.Background(), uuid.New(), "oil")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestPutChecklistUpserts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	vehicleID := uuid.New()

	_, err := svc.PutChecklist(ctx, vehicleID, "oil", PutChecklistInput{Tasks: []string{"drain oil", " ", "replace filter"}})
	require.NoError(t, err)

	tasks, err := svc.GetChecklist(ctx, vehicleID, "oil")
	require.NoError(t, err)
	assert.Equal(t, []string{"drain oil", "replace filter"}, tasks)

	_, err = svc.PutChecklist(ctx, vehicleID, "oil", PutChecklistInput{Tasks: []string{"check level"}})
	require.NoError(t, err)
	tasks, err = svc.GetChecklist(ctx, vehicleID, "oil")
	require.NoError(t, err)
	assert.Equal(t, []string{"check level"}, tasks)

	other, err := svc.GetChecklist(ctx, vehicleID, "brakes")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestChecklistIDComposite(t *testing.T) {
	id := uuid.MustParse("5f1c7e2a-0000-4000-8000-000000000001")
	assert.Equal(t, "5f1c7e2a-0000-4000-8000-000000000001_oil", models.ChecklistID(id, "oil"))
}
