package main

import (
	"os"

	"github.com/goliatone/go-contractor/cmd/contractor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
