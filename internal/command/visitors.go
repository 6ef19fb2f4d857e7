package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/di/providers"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

var errVisitorsNotPersisted = errors.New("visitor stores are not persisted (set VISITOR_PERSIST=true); there is nothing on disk to inspect")

type visitorRow struct {
	ID    string `json:"id"`
	Items int    `json:"items"`
	Total int    `json:"total"`
}

// NewVisitorsCmd creates the visitors command group. It works on the
// badger directory behind VISITOR_PERSIST.
func NewVisitorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visitors",
		Short: "Inspect or discard persisted visitor stores",
	}
	cmd.AddCommand(newVisitorsListCmd(), newVisitorsDiscardCmd())
	return cmd
}

func openVisitors(cmd *cobra.Command) (*providers.VisitorRegistryHandle, error) {
	env, err := loadEnv(cmd)
	if err != nil {
		return nil, err
	}
	if !env.cfg.Visitor.Persist {
		return nil, errVisitorsNotPersisted
	}
	return providers.OpenVisitorRegistry(env.cfg, env.log)
}

func newVisitorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visitors with stored data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openVisitors(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer registry.Close()

			rows, err := listVisitors(cmd.Context(), registry.Registry)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No visitor stores.")
				return nil
			}
			cells := make([][]string, 0, len(rows))
			for _, r := range rows {
				cells = append(cells, []string{r.ID, strconv.Itoa(r.Items), strconv.Itoa(r.Total)})
			}
			writeTable(cmd, []string{"VISITOR", "OWN ITEMS", "VISIBLE"}, cells)
			return nil
		},
	}
}

func newVisitorsDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <visitor-id>...",
		Short: "Delete visitor stores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openVisitors(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer registry.Close()

			for _, visitorID := range args {
				if err := registry.Discard(cmd.Context(), visitorID); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, map[string]any{"discarded": args})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d visitor store(s)\n", len(args))
			return nil
		},
	}
}

func listVisitors(ctx context.Context, registry *visitor.Registry) ([]visitorRow, error) {
	ids, err := registry.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}

	rows := make([]visitorRow, 0, len(ids))
	for _, visitorID := range ids {
		st, err := registry.Get(ctx, visitorID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, visitorRow{
			ID:    visitorID,
			Items: st.VisitorCount(),
			Total: len(st.List()),
		})
	}
	return rows, nil
}
