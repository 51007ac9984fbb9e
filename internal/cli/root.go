// Package cli implements the mnemo CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDirFlag string
	layerFlag   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Layered associative memory for AI agents",
	Long: `mnemo stores agent memories across six layers (semantic, episodic,
procedural, affective, identity, reflective) in an embedded vector
database and synthesizes reflections from them with an LLM.`,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", "", "Persistence directory (default: $MNEMO_DATA_DIR or in-memory)")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
