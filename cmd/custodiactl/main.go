package main

import (
	"os"

	"github.com/JonMunkholm/custodia/cmd/custodiactl/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
