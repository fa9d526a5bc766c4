package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dir := t.TempDir()
	db, err := Open(Config{
		Path:        filepath.Join(dir, "state.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func TestOpenCreatesDirectoryAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.db")

	db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestBackupWritesSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO t (v) VALUES (7)"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	backupPath := filepath.Join(t.TempDir(), "backup.db")
	if err := db.Backup(ctx, backupPath); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	snapshot, err := Open(Config{Path: backupPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer snapshot.Close() //nolint:errcheck

	var v int
	if err := snapshot.QueryRowContext(ctx, "SELECT v FROM t").Scan(&v); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if v != 7 {
		t.Errorf("snapshot value = %d, want 7", v)
	}

	// A second backup replaces the first rather than failing.
	if err := db.Backup(ctx, backupPath); err != nil {
		t.Errorf("second Backup: %v", err)
	}
}

func TestBackupEmptyPathIsNoop(t *testing.T) {
	db := openTestDB(t)
	if err := db.Backup(context.Background(), ""); err != nil {
		t.Errorf("Backup with empty path: %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"up migration", "20260815_120000_initial_schema.up.sql", "20260815_120000", true, true},
		{"down migration", "20260815_120000_initial_schema.down.sql", "20260815_120000", false, true},
		{"not sql", "README.md", "", false, false},
		{"no direction", "20260815_120000_initial_schema.sql", "", false, false},
		{"too few parts", "justone.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if isUp != tt.wantUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	got := extractMigrationName("20260815_120000_initial_schema.up.sql")
	if got != "initial_schema" {
		t.Errorf("name = %q, want %q", got, "initial_schema")
	}
}
