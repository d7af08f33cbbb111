package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreBehavior(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := seed(ctx, store); err != nil {
				t.Fatalf("seed() error = %v", err)
			}
			// Seeding twice is harmless.
			if err := seed(ctx, store); err != nil {
				t.Fatalf("second seed() error = %v", err)
			}

			admin, err := Authenticate(ctx, store, "admin", "1234")
			if err != nil {
				t.Fatalf("Authenticate(admin) error = %v", err)
			}
			if admin != DemoAdmin() {
				t.Errorf("admin = %+v", admin)
			}

			if _, err := Authenticate(ctx, store, "admin", "12345"); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("wrong password: error = %v", err)
			}
			if _, err := Authenticate(ctx, store, "ghost", "1234"); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("unknown user: error = %v", err)
			}
			// Exact match only, no trimming or case folding.
			if _, err := Authenticate(ctx, store, "Admin", "1234"); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("case-folded user: error = %v", err)
			}

			user, err := SignUp(ctx, store, "dana", "pw")
			if err != nil {
				t.Fatalf("SignUp() error = %v", err)
			}
			if user.FullName != "dana" || user.Age != DefaultSignupAge {
				t.Errorf("signed up user = %+v", user)
			}
			if _, err := SignUp(ctx, store, "dana", "other"); !errors.Is(err, ErrExists) {
				t.Errorf("duplicate sign-up: error = %v", err)
			}
			if _, err := SignUp(ctx, store, "  ", "pw"); !errors.Is(err, ErrInvalidUser) {
				t.Errorf("blank username: error = %v", err)
			}

			if err := store.UpdateProfile(ctx, "dana", "Dana Scully", 41); err != nil {
				t.Fatalf("UpdateProfile() error = %v", err)
			}
			got, err := store.Get(ctx, "dana")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.FullName != "Dana Scully" || got.Age != 41 || got.Password != "pw" {
				t.Errorf("updated user = %+v", got)
			}

			if err := store.UpdateProfile(ctx, "ghost", "Nobody", 30); !errors.Is(err, ErrNotFound) {
				t.Errorf("update unknown user: error = %v", err)
			}
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if _, err := SignUp(ctx, s, "fox", "trustno1"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := Authenticate(ctx, s, "fox", "trustno1"); err != nil {
		t.Errorf("Authenticate() after reopen error = %v", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT MAX(version) FROM " + MigrationTable).Scan(&version); err != nil || version != 2 {
		t.Errorf("schema version = %d, %v; want 2", version, err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	store, err := New(ctx, config.CredentialsData{Backend: "memory"}, logger)
	if err != nil {
		t.Fatalf("New(memory) error = %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("memory backend returned %T", store)
	}
	if _, err := Authenticate(ctx, store, "admin", "1234"); err != nil {
		t.Errorf("demo admin missing: %v", err)
	}

	if _, err := New(ctx, config.CredentialsData{Backend: "ldap"}, logger); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestUserRowProfile(t *testing.T) {
	in := types.UserRecord{
		Username:       "walter",
		Password:       "pw",
		FullName:       "Walter Skinner",
		Age:            55,
		Email:          "ws@example.com",
		MedicalHistory: "Hypertension",
	}

	row, err := newUserRow(in)
	if err != nil {
		t.Fatalf("newUserRow() error = %v", err)
	}
	out, err := row.record()
	if err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if out != in {
		t.Errorf("record() = %+v, want %+v", out, in)
	}
}
