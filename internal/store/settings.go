package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const passwordHashKey = "password_hash"

// DefaultPassword protects the settings pane until the examiner changes it.
const DefaultPassword = "password"

// ErrWrongPassword is returned when password verification fails.
var ErrWrongPassword = errors.New("wrong password")

// GetSetting returns the value for key, or empty string if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting inserts or replaces the value for key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// EnsurePassword seeds the default password hash on first run. It is a no-op
// when a hash already exists.
func (s *Store) EnsurePassword(ctx context.Context) error {
	existing, err := s.GetSetting(ctx, passwordHashKey)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	return s.UpdatePassword(ctx, DefaultPassword)
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *Store) VerifyPassword(ctx context.Context, password string) error {
	hash, err := s.GetSetting(ctx, passwordHashKey)
	if err != nil {
		return err
	}
	if hash == "" {
		return errors.New("no password set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// UpdatePassword hashes and stores a new password.
func (s *Store) UpdatePassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.SetSetting(ctx, passwordHashKey, string(hash))
}
