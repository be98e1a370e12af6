package identity

import (
	"context"
	"time"

	"github.com/huangzx96/llm-workbench/internal/auth"
)

// SeedPassword is the shared password of the demo catalog.
const SeedPassword = "password"

// Seed loads the demo users into an empty store. Seeding happens at session
// construction rather than via package-level globals so tests never share
// mutable state.
func Seed(ctx context.Context, repo *Repo) error {
	cnt, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}

	hash, err := auth.HashPassword(SeedPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	seeds := []User{
		{
			Username:     "admin",
			Email:        "admin@example.com",
			PasswordHash: hash,
			Role:         RoleAdmin,
			Preferences:  Preferences{Theme: "system", DefaultModel: "gpt-4", AutoSave: true},
			CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			LastLoginAt:  now,
		},
		{
			Username:     "user1",
			Email:        "user1@example.com",
			PasswordHash: hash,
			Role:         RoleUser,
			Preferences:  Preferences{Theme: "light", DefaultModel: "gpt-3.5-turbo", AutoSave: false},
			CreatedAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			LastLoginAt:  now,
		},
	}

	for i := range seeds {
		if err := repo.Create(ctx, &seeds[i]); err != nil {
			return err
		}
	}
	return nil
}
