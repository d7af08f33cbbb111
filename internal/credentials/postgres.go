package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/rhythmanchor/internal/database"
	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/jackc/pgtype"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// userRow is the PostgreSQL representation of an account. Contact and
// medical details that are only ever shown on the profile page live in a
// JSONB column.
type userRow struct {
	Username string       `gorm:"column:username;primaryKey"`
	Password string       `gorm:"column:password;not null"`
	FullName string       `gorm:"column:full_name;not null;default:''"`
	Age      int          `gorm:"column:age;not null;default:0"`
	Profile  pgtype.JSONB `gorm:"column:profile;type:jsonb;default:'{}';not null"`
}

func (userRow) TableName() string {
	return "users"
}

type profileExtras struct {
	Email          string `json:"email,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

// PostgresStore keeps accounts in PostgreSQL through GORM
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects and migrates the users table
func NewPostgresStore(dsn string, logger *zap.SugaredLogger) (*PostgresStore, error) {
	db, err := database.CreateConnection(dsn, logger.Desugar())
	if err != nil {
		return nil, fmt.Errorf("credential store could not connect to database: %w", err)
	}
	return NewPostgresStoreFromDB(db)
}

// NewPostgresStoreFromDB wraps an existing GORM handle
func NewPostgresStoreFromDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Get(ctx context.Context, username string) (types.UserRecord, error) {
	var row userRow
	err := p.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.UserRecord{}, ErrNotFound
	}
	if err != nil {
		return types.UserRecord{}, fmt.Errorf("failed to query user: %w", err)
	}
	return row.record()
}

func (p *PostgresStore) Create(ctx context.Context, user types.UserRecord) error {
	if err := validate(user); err != nil {
		return err
	}

	row, err := newUserRow(user)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check for existing user: %w", err)
		}
		if count > 0 {
			return ErrExists
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

func (p *PostgresStore) UpdateProfile(ctx context.Context, username, fullName string, age int) error {
	if err := validate(types.UserRecord{Username: username, Age: age}); err != nil {
		return err
	}

	res := p.db.WithContext(ctx).Model(&userRow{}).
		Where("username = ?", username).
		Updates(map[string]any{"full_name": fullName, "age": age})
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newUserRow(u types.UserRecord) (userRow, error) {
	row := userRow{
		Username: u.Username,
		Password: u.Password,
		FullName: u.FullName,
		Age:      u.Age,
	}
	if err := row.Profile.Set(profileExtras{Email: u.Email, MedicalHistory: u.MedicalHistory}); err != nil {
		return userRow{}, fmt.Errorf("failed to encode profile: %w", err)
	}
	return row, nil
}

func (r userRow) record() (types.UserRecord, error) {
	var extras profileExtras
	if r.Profile.Status == pgtype.Present {
		if err := r.Profile.AssignTo(&extras); err != nil {
			return types.UserRecord{}, fmt.Errorf("failed to decode profile: %w", err)
		}
	}
	return types.UserRecord{
		Username:       r.Username,
		Password:       r.Password,
		FullName:       r.FullName,
		Age:            r.Age,
		Email:          extras.Email,
		MedicalHistory: extras.MedicalHistory,
	}, nil
}
