package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"001_create_users.up.sql":   {Data: []byte(`CREATE TABLE users (username TEXT PRIMARY KEY);`)},
	"001_create_users.down.sql": {Data: []byte(`DROP TABLE users;`)},
	"002_add_age.up.sql":        {Data: []byte(`ALTER TABLE users ADD COLUMN age INTEGER NOT NULL DEFAULT 0;`)},
	"002_add_age.down.sql":      {Data: []byte(`ALTER TABLE users DROP COLUMN age;`)},
	"README.md":                 {Data: []byte(`not a migration`)},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "").GetMigrations()
	if err != nil {
		t.Fatalf("GetMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "create users" || migrations[0].Down == "" {
		t.Errorf("first migration = %+v", migrations[0])
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, ""))

	if err := m.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if v, _ := m.GetCurrentVersion(); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if _, err := db.Exec(`INSERT INTO users (username, age) VALUES ('admin', 30)`); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	// Running again is a no-op.
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}

	if err := m.MigrateDown(1); err != nil {
		t.Fatalf("MigrateDown(1) error = %v", err)
	}
	if v, _ := m.GetCurrentVersion(); v != 1 {
		t.Errorf("version after rollback = %d, want 1", v)
	}
	if _, err := db.Exec(`INSERT INTO users (username, age) VALUES ('maya', 30)`); err == nil {
		t.Error("age column survived the rollback")
	}

	pending, err := m.GetPendingMigrations()
	if err != nil || len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("pending = %+v, %v", pending, err)
	}

	if err := m.MigrateDown(5); err == nil {
		t.Error("expected an error rolling forward with MigrateDown")
	}
}
