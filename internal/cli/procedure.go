package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	procCmd := &cobra.Command{
		Use:   "procedure",
		Short: "Manage structured procedures",
	}

	var (
		title        string
		description  string
		steps        []string
		requirements []string
		tags         []string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Store a structured procedure",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			rec, err := a.stores.Procedural.StoreProcedure(cmd.Context(), memory.Procedure{
				Title:        title,
				Description:  description,
				Steps:        steps,
				Requirements: requirements,
			}, tags, "cli")
			if err != nil {
				exitErr("store procedure", err)
			}
			printJSON(rec)
		},
	}
	addCmd.Flags().StringVar(&title, "title", "", "Procedure title (required)")
	addCmd.Flags().StringVar(&description, "description", "", "What the procedure achieves")
	addCmd.Flags().StringArrayVar(&steps, "step", nil, "One step (repeatable, in order)")
	addCmd.Flags().StringArrayVar(&requirements, "requires", nil, "One requirement (repeatable)")
	addCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags")
	addCmd.MarkFlagRequired("title")

	var limit int
	findCmd := &cobra.Command{
		Use:   "find <title-fragment>",
		Short: "Find structured procedures by title",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			recs, err := a.stores.Procedural.RetrieveByTitle(cmd.Context(), args[0], limit)
			if err != nil {
				exitErr("find procedures", err)
			}
			printJSON(recs)
		},
	}
	findCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")

	procCmd.AddCommand(addCmd, findCmd)
	RootCmd.AddCommand(procCmd)
}
