package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/di/providers"
	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/id"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

const minSeedPasswordLength = 8

type seedResult struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
}

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo account holding the sample recommendations",
		Long: "Creates an account (or reuses one with the same email) and copies the\n" +
			"built-in sample recommendations into it. Titles already present are skipped,\n" +
			"so running it twice is harmless.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			email = strings.TrimSpace(email)
			if email == "" {
				return writeCommandError(cmd, errors.New("--email is required"))
			}
			if len(password) < minSeedPasswordLength {
				return writeCommandError(cmd, fmt.Errorf("--password must be at least %d characters", minSeedPasswordLength))
			}

			env, err := loadEnv(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			db, err := providers.OpenDatabase(env.cfg, env.log)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			facade := storage.New(db, nil, nil, storage.Options{}, env.log.Component("storage"))
			result, err := seedAccount(ctx, db, facade, email, password, strings.TrimSpace(name))
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, result)
			}
			verb := "Reused"
			if result.Created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s account %s (%s)\n", verb, result.Email, result.UserID)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d recommendations, skipped %d already present\n", result.Added, result.Skipped)
			return nil
		},
	}

	cmd.Flags().String("email", "demo@recshelf.local", "account email")
	cmd.Flags().String("password", "recshelf-demo", "account password, used only when the account is created")
	cmd.Flags().String("name", "Demo", "display name")
	return cmd
}

func seedAccount(ctx context.Context, db store.Database, facade *storage.Facade, email, password, name string) (*seedResult, error) {
	user, created, err := findOrCreateUser(ctx, db, email, password, name)
	if err != nil {
		return nil, err
	}
	result := &seedResult{UserID: user.ID, Email: user.Email, Created: created}

	account := facade.Account(user.ID)
	existing, err := account.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing recommendations: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, rec := range existing {
		have[seedKey(rec)] = true
	}

	for _, sample := range visitor.Samples().Recommendations {
		rec := sample
		rec.ID = ""
		rec.Recommender = domain.Person{Name: sample.Recommender.Name, Avatar: sample.Recommender.Avatar}
		if have[seedKey(&rec)] {
			result.Skipped++
			continue
		}
		if err := account.Add(ctx, &rec); err != nil {
			return nil, fmt.Errorf("add %q: %w", rec.Title, err)
		}
		have[seedKey(&rec)] = true
		result.Added++
	}
	return result, nil
}

func findOrCreateUser(ctx context.Context, db store.Database, email, password, name string) (*domain.User, bool, error) {
	user, err := db.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("look up %s: %w", email, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, false, fmt.Errorf("generate user ID: %w", err)
	}
	user = &domain.User{
		ID:           userID,
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
	}
	user.InitTimestamps()
	if err := db.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func seedKey(rec *domain.Recommendation) string {
	return string(rec.Type) + "\x00" + domain.FoldName(rec.Title)
}
