package main

import (
	"os"

	"onionnet/cmd/onionnet/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
