// Package main is the operator CLI for a Recshelf deployment.
package main

import (
	"os"

	"github.com/recshelf/recshelf-server/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
