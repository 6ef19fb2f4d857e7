// Package command implements recshelfctl, the operator CLI. Commands open
// the same databases the server uses, so run the ones that touch visitor
// stores while the server is stopped: badger holds an exclusive lock.
package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "recshelfctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// Execute runs the root command against os.Args.
// Flag and argument errors from cobra are printed here; command errors
// were already printed by writeCommandError.
func Execute() error {
	err := NewRootCmd(Version).Execute()
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Recshelf operator tools",
		Long:          "recshelfctl seeds, inspects and maintains a Recshelf server's data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("data-dir", "", "directory holding the server's databases")
	cmd.PersistentFlags().String("db-driver", "", "account database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-url", "", "postgres connection string")
	cmd.PersistentFlags().String("env-file", ".env", "path to .env file")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("verbose", false, "log at debug level")

	cmd.AddCommand(
		NewSeedCmd(),
		NewUsersCmd(),
		NewVisitorsCmd(),
		NewSessionsCmd(),
	)

	return cmd
}
