package credentials

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/migrate"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps accounts in a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationTable tracks the applied users schema version
const MigrationTable = "users_schema_migrations"

// Migrations returns the users schema migrations
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewSQLiteStore opens (and if needed creates) the users database
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(Migrations(), MigrationTable))
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate users schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, username string) (types.UserRecord, error) {
	var u types.UserRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password, full_name, age, email, medical_history FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.Password, &u.FullName, &u.Age, &u.Email, &u.MedicalHistory)
	if errors.Is(err, sql.ErrNoRows) {
		return types.UserRecord{}, ErrNotFound
	}
	if err != nil {
		return types.UserRecord{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) Create(ctx context.Context, user types.UserRecord) error {
	if err := validate(user); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, full_name, age, email, medical_history) VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Password, user.FullName, user.Age, user.Email, user.MedicalHistory,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, username, fullName string, age int) error {
	if err := validate(types.UserRecord{Username: username, Age: age}); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, age = ? WHERE username = ?`,
		fullName, age, username,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
