package main

import (
	"os"

	"github.com/mnemosyneos/mnemo/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
