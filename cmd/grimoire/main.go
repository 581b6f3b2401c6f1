package main

import (
	"os"

	"github.com/grimoire-wiki/grimoire/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
