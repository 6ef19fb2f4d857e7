package command

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/config"
	"github.com/recshelf/recshelf-server/internal/logger"
)

// cmdEnv is what every data command needs: resolved configuration and a
// logger that writes to the command's stderr.
type cmdEnv struct {
	cfg *config.Config
	log *logger.Logger
}

// passthroughFlags are root flags forwarded verbatim to config.Load so the
// CLI resolves paths exactly like the server.
var passthroughFlags = []string{"data-dir", "db-driver", "database-url", "env-file"}

func loadEnv(cmd *cobra.Command) (*cmdEnv, error) {
	var args []string
	for _, name := range passthroughFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed && name != "env-file" {
			continue
		}
		args = append(args, "--"+name, f.Value.String())
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Config{
		Writer:      cmd.ErrOrStderr(),
		Format:      "pretty",
		Level:       level,
		Environment: cfg.App.Environment,
	})
	return &cmdEnv{cfg: cfg, log: log}, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func writeTable(cmd *cobra.Command, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
}
