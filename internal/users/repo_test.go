package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Tech@Shop.Example ",
		PasswordHash: "hash",
		DisplayName:  "Sam Tech",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "tech@shop.example", created.Email)
	assert.Equal(t, enums.UserRoleTechnician, created.Role)
	assert.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "TECH@shop.example")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam Tech", byID.DisplayName)
}

func TestRepositoryRecordLogin(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Email: "a@b.c", PasswordHash: "h", DisplayName: "A", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, created.ID, at, ""))

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
	assert.Equal(t, "h", reloaded.PasswordHash)

	require.NoError(t, repo.RecordLogin(ctx, created.ID, at.Add(time.Hour), "rehashed"))
	reloaded, err = repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rehashed", reloaded.PasswordHash)
}

func TestRepositoryFindMissing(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	_, err := repo.FindByEmail(context.Background(), "ghost@shop.example")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFromModelOmitsPasswordHash(t *testing.T) {
	dto := FromModel(&models.User{ID: uuid.New(), Email: "x@y.z", PasswordHash: "secret", Role: enums.UserRoleAdmin})
	require.NotNil(t, dto)
	assert.Equal(t, enums.UserRoleAdmin, dto.Role)
	assert.Nil(t, FromModel(nil))
}
