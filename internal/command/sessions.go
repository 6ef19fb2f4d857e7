package command

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/di/providers"
)

// NewSessionsCmd creates the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain refresh-token sessions",
	}
	cmd.AddCommand(newSessionsPruneCmd())
	return cmd
}

func newSessionsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions now instead of waiting for the hourly job",
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

			n, err := db.DeleteExpiredSessions(ctx, time.Now())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, map[string]int64{"deleted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", n)
			return nil
		},
	}
}
