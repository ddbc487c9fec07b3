package sqlitemigrate_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"pomo/internal/platform/sqlitemigrate"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyRunsEachMigrationOnce(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	migrations := fstest.MapFS{
		"migrations/0001_init.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE things (id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE things;\n")},
		"migrations/0002_more.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"migrations/README.md":     {Data: []byte("ignored")},
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := sqlitemigrate.Apply(ctx, db, migrations, "migrations"); err != nil {
			t.Fatalf("apply pass %d: %v", i, err)
		}
	}
	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", applied)
	}
	if _, err := db.Exec("INSERT INTO things (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()
	got := sqlitemigrate.UpSection("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;\n")
	if got != "\nSELECT 1;\n" {
		t.Fatalf("unexpected up section %q", got)
	}
	if got := sqlitemigrate.UpSection("SELECT 3;"); got != "SELECT 3;" {
		t.Fatalf("unexpected passthrough %q", got)
	}
}
