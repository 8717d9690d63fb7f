package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"minisaas.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStorage is the production implementation backed by a single
// profiles table.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db, path: path}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}

	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT id, email, stripe_customer_id, created_at, updated_at FROM profiles WHERE id = ?`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT id, email, stripe_customer_id, created_at, updated_at FROM profiles WHERE email = ?`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStorage) scanProfile(row *sql.Row) (*models.Profile, error) {
	var profile models.Profile
	var customerID sql.NullString

	err := row.Scan(&profile.ID, &profile.Email, &customerID, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		profile.StripeCustomerID = customerID.String
	}
	return &profile, nil
}

func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `INSERT INTO profiles (id, email, stripe_customer_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Email, nullable(profile.StripeCustomerID), profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.StripeCustomerID != nil {
		sets = append(sets, "stripe_customer_id = ?")
		args = append(args, nullable(*update.StripeCustomerID))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = ?", strings.Join(sets, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetProfile(ctx, id)
}

func (s *SQLiteStorage) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	_, err := s.UpdateProfile(ctx, id, models.ProfileUpdate{StripeCustomerID: &customerID})
	return err
}

func (s *SQLiteStorage) ClearStripeCustomerID(ctx context.Context, id string) error {
	empty := ""
	_, err := s.UpdateProfile(ctx, id, models.ProfileUpdate{StripeCustomerID: &empty})
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// nullable maps "" to NULL so a cleared customer id is stored as NULL, not
// an empty string.
func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
