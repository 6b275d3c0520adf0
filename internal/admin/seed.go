// Package admin provides administrative operations: startup seeding and
// destructive maintenance.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/extraction"
)

// SeedTimeout is the maximum duration for seeding at startup.
const SeedTimeout = 30 * time.Second

type seedFn func(ctx context.Context) error

// Seeder creates the records the application expects to exist.
type Seeder struct {
	Store core.Store
	Admin config.AdminConfig
}

// Seed ensures the administrator login and the extraction default custodian
// exist. It is safe to run on every start.
func (s *Seeder) Seed(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, SeedTimeout)
	defer cancel()

	return run(ctx, []seedFn{
		s.ensureAdmin,
		s.ensureDefaultCustodian,
	})
}

func (s *Seeder) ensureAdmin(ctx context.Context) error {
	_, err := s.Store.GetUserByUsername(ctx, s.Admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := core.HashPassword(s.Admin.Password)
	if err != nil {
		return err
	}
	_, err = s.Store.CreateUser(ctx, s.Admin.Username, hash)
	if errors.Is(err, core.ErrIntegrityConflict) {
		// Another instance seeded it first.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("admin user created", "username", s.Admin.Username)
	return nil
}

func (s *Seeder) ensureDefaultCustodian(ctx context.Context) error {
	id, err := extraction.EnsureDefaultCustodian(ctx, s.Store)
	if err != nil {
		return err
	}
	slog.Debug("default custodian ready", "custodian_id", id)
	return nil
}

func run(ctx context.Context, steps []seedFn) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
