package main

import (
	"os"

	"expenses/internal/cli"
	"expenses/internal/commands"
)

func main() {
	cli.LoadEnvFile()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
