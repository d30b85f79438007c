package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/domain/user"
)

type UserEnsurer interface {
	EnsureUser(ctx context.Context, req user.Request) (user.Response, bool, error)
}

// EnsureAdminUser seeds the bootstrap admin from ADMIN_EMAIL/ADMIN_PASSWORD.
// It is a no-op when either is unset or the email already exists.
func EnsureAdminUser(ctx context.Context, users UserEnsurer, cfg config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	resp, created, err := users.EnsureUser(ctx, user.Request{
		Email:    cfg.AdminEmail,
		UserName: cfg.AdminUserName,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	})
	if err != nil {
		return err
	}

	if created {
		logger.Info("admin user seeded", "user_id", resp.ID, "email", resp.Email)
	}

	return nil
}
