package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/di/providers"
	"github.com/recshelf/recshelf-server/internal/store"
)

type userRow struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	Recommendations int       `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
	LastLoginAt     time.Time `json:"last_login_at,omitzero"`
}

// NewUsersCmd creates the users command group.
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect accounts",
	}
	cmd.AddCommand(newUsersListCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their recommendation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			rows, err := listUsers(ctx, db)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				return nil
			}
			cells := make([][]string, 0, len(rows))
			for _, r := range rows {
				cells = append(cells, []string{r.ID, r.Email, r.DisplayName, strconv.Itoa(r.Recommendations), r.CreatedAt.Format(time.DateOnly)})
			}
			writeTable(cmd, []string{"ID", "EMAIL", "NAME", "RECS", "CREATED"}, cells)
			return nil
		},
	}
}

func listUsers(ctx context.Context, db store.Database) ([]userRow, error) {
	users, err := db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		recs, err := db.ListRecommendations(ctx, u.ID, store.RecommendationFilter{})
		if err != nil {
			return nil, fmt.Errorf("count recommendations for %s: %w", u.ID, err)
		}
		rows = append(rows, userRow{
			ID:              u.ID,
			Email:           u.Email,
			DisplayName:     u.DisplayName,
			Recommendations: len(recs),
			CreatedAt:       u.CreatedAt,
			LastLoginAt:     u.LastLoginAt,
		})
	}
	return rows, nil
}
