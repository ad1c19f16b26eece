package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jgechelper/backend/pkg/migrate"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"*_create_users.sql": {
			"CREATE TABLE IF NOT EXISTS users",
			"CHECK (role IN ('admin', 'user'))",
			"DEFAULT 'active'",
			"DROP TABLE IF EXISTS users",
		},
		"*_create_resources.sql": {
			"CREATE TABLE IF NOT EXISTS resources",
			"idx_resources_branch_semester ON resources (branch, semester)",
			"visible BOOLEAN NOT NULL DEFAULT TRUE",
			"DROP TABLE IF EXISTS resources",
		},
		"*_create_notices.sql": {
			"CREATE TABLE IF NOT EXISTS notices",
			"CHECK (priority IN ('High', 'Normal'))",
			"DROP TABLE IF EXISTS notices",
		},
		"*_create_settings.sql": {
			"CREATE TABLE IF NOT EXISTS settings",
			"data TEXT NOT NULL DEFAULT '{}'",
			"DROP TABLE IF EXISTS settings",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration file found for %s", pattern)
		}

		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", pattern, sub)
			}
		}
	}
}

func TestValidateDirAcceptsMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestValidateDirRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_users.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Notice Tags!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_notice_tags.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestDialect(t *testing.T) {
	got, err := migrate.Dialect("sqlite")
	require.NoError(t, err)
	require.Equal(t, "sqlite3", got)

	got, err = migrate.Dialect("postgres")
	require.NoError(t, err)
	require.Equal(t, "postgres", got)

	_, err = migrate.Dialect("firestore")
	require.Error(t, err)
}

func TestRunUpOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_up?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Run(context.Background(), sqlDB, "sqlite", "migrations", "up"))

	for _, table := range []string{"users", "resources", "notices", "settings"} {
		require.True(t, conn.Migrator().HasTable(table), "expected table %s", table)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20250101000000_first.sql":  "-- +goose Up\n",
		"20250101000000_second.sql": "-- +goose Up\n-- +goose Down\n",
		"notes.sql":                 "",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing \"-- +goose Down\"")
	require.Contains(t, err.Error(), "duplicate migration version")
	require.Contains(t, err.Error(), "invalid migration filename \"notes.sql\"")
}
