package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	c := Open(conn)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func countWidgets(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	c := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, c.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countWidgets(t, c))

	err := c.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "dropped"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.EqualValues(t, 1, countWidgets(t, c))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	c := openSQLite(t)

	assert.Panics(t, func() {
		_ = c.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&widget{Name: "half"})
			panic("mid-transaction")
		})
	})
	assert.EqualValues(t, 0, countWidgets(t, c))
}

func TestNewOpensSQLite(t *testing.T) {
	c, err := New(context.Background(), config.DBConfig{
		Driver:       DriverSQLite,
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	pgDup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	cases := map[string]struct {
		err        error
		constraint string
		want       bool
	}{
		"nil":                  {nil, "", false},
		"postgres":             {pgDup, "", true},
		"postgres wrapped":     {fmt.Errorf("create: %w", pgDup), "users_email_key", true},
		"postgres other name":  {pgDup, "parts_oem_key", false},
		"postgres other code":  {&pgconn.PgError{Code: "23503"}, "", false},
		"gorm sentinel":        {gorm.ErrDuplicatedKey, "", true},
		"sqlite":               {errors.New("UNIQUE constraint failed: users.email"), "", true},
		"sqlite column filter": {errors.New("UNIQUE constraint failed: users.email"), "users.email", true},
		"unrelated":            {errors.New("connection reset"), "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestUniqueViolationFromSQLite(t *testing.T) {
	c := openSQLite(t)
	require.NoError(t, c.DB().Create(&widget{Name: "dup"}).Error)

	err := c.DB().Create(&widget{Name: "dup"}).Error
	assert.True(t, IsUniqueViolation(err, ""))
}

func TestIsNotFound(t *testing.T) {
	c := openSQLite(t)
	var w widget
	assert.True(t, IsNotFound(c.DB().First(&w, "name = ?", "missing").Error))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestQueryLoggerReportsSlowAndFailedQueries(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf, Format: logger.FormatJSON})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "db.query_slow")
	buf.Reset()

	ql.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "db.query_failed")
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)
	buf.Reset()

	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
