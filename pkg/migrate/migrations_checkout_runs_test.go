package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fieldpos-backend/pkg/migrate"
)

func TestCheckoutRunsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_checkout_runs.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no checkout runs migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS checkout_runs",
		"id uuid PRIMARY KEY",
		"payment_ids jsonb",
		"committed jsonb",
		"amount_total numeric(14,2)",
		"CHECK (status IN ('reconciled', 'partial', 'failed'))",
		"checkout_runs_idempotency_key_idx",
		"DROP TABLE IF EXISTS checkout_runs",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Register Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_register_index.sql") {
		t.Fatalf("unexpected migration name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration is invalid: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatalf("expected error for empty sanitized name")
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect("sqlite"); got != "sqlite3" {
		t.Fatalf("expected sqlite3 got %s", got)
	}
	if got := migrate.Dialect("postgres"); got != "postgres" {
		t.Fatalf("expected postgres got %s", got)
	}
	if got := migrate.Dialect(""); got != "postgres" {
		t.Fatalf("expected postgres default got %s", got)
	}
}

func TestRunAgainstSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	ctx := context.Background()

	if err := migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "migrations", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}
	if !conn.Migrator().HasTable("checkout_runs") {
		t.Fatalf("checkout_runs table missing after up")
	}

	if err := migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "migrations", "down"); err != nil {
		t.Fatalf("goose down: %v", err)
	}
	if conn.Migrator().HasTable("checkout_runs") {
		t.Fatalf("checkout_runs table still present after down")
	}

	if err := migrate.Run(ctx, nil, "sqlite3", "migrations", "up"); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
