package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ListUsers returns all logins ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// CreateUser adds a login. Duplicate usernames fail with ErrIntegrityConflict.
func (s *Service) CreateUser(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, NewValidationError("username and password are required", "username", "password")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return User{}, err
	}
	LogAudit(ctx, s.store, AuditLogParams{Action: ActionUserCreate, Subject: username, RowsAffected: 1})
	return u, nil
}

// ResetPassword replaces a user's password.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return NewValidationError("a new password is required", "password")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, id, hash); err != nil {
		return err
	}
	LogAudit(ctx, s.store, AuditLogParams{Action: ActionUserReset, Subject: u.Username, RowsAffected: 1})
	return nil
}

// DeleteUser removes a login. The acting user and the seeded administrator
// cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, actor string, id int64) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.Username == actor {
		return fmt.Errorf("cannot remove the logged-in user: %w", ErrForbidden)
	}
	if s.adminUsername != "" && u.Username == s.adminUsername {
		return fmt.Errorf("the default administrator cannot be removed: %w", ErrForbidden)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	LogAudit(ctx, s.store, AuditLogParams{Action: ActionUserDelete, Subject: u.Username, RowsAffected: 1})
	return nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
