package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/fleetshop-backend/pkg/migrate"
)

func TestMigrationsDirectoryIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestPartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_parts.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS parts",
		"CHECK (quantity >= 0)",
		"unit_cost numeric(12,2)",
		"FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS parts",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestServiceRecordsMigrationKeepsLinesIndependentOfParts(t *testing.T) {
	content := readMigration(t, "*_create_service_records.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS service_record_parts",
		"FOREIGN KEY (service_record_id) REFERENCES service_records(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
		"date varchar(10) NOT NULL",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if strings.Contains(content, "REFERENCES parts(id)") {
		t.Errorf("record lines must not reference parts")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Part Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_part_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
