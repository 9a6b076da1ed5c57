package main

import (
	"os"

	"github.com/hearthdesk/hearthd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
