package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	var (
		limit int
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Retrieve memories by similarity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			store, err := a.layerStore(layerFlag)
			if err != nil {
				exitErr("resolve layer", err)
			}

			results, err := store.Retrieve(cmd.Context(), args[0], limit, &memory.RetrieveOptions{Tags: tags})
			if err != nil {
				exitErr("retrieve", err)
			}

			type hit struct {
				Relevance float64        `json:"relevance"`
				Record    *memory.Record `json:"record"`
			}
			hits := make([]hit, 0, len(results))
			for _, r := range results {
				hits = append(hits, hit{Relevance: r.Relevance, Record: r.Record})
			}
			printJSON(hits)
		},
	}

	cmd.Flags().StringVarP(&layerFlag, "layer", "l", "semantic", "Layer to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum results")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Require all of these tags")
	RootCmd.AddCommand(cmd)
}
