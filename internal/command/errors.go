package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recshelf/recshelf-server/internal/store"
)

// reportedError marks an error already written to stderr.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check --data-dir points at the server's data directory.")
	}
	return reportedError{err}
}
