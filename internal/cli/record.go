package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	getCmd := &cobra.Command{
		Use:   "get <layer> <id>",
		Short: "Fetch one memory by id",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			store, err := a.layerStore(args[0])
			if err != nil {
				exitErr("resolve layer", err)
			}
			rec, ok, err := store.Get(cmd.Context(), args[1])
			if err != nil {
				exitErr("get", err)
			}
			if !ok {
				exitErr("get", fmt.Errorf("no record %s in %s", args[1], args[0]))
			}
			printJSON(rec)
		},
	}

	forgetCmd := &cobra.Command{
		Use:   "forget <layer> <id>",
		Short: "Delete one memory by id",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			store, err := a.layerStore(args[0])
			if err != nil {
				exitErr("resolve layer", err)
			}
			deleted, err := store.Delete(cmd.Context(), args[1])
			if err != nil {
				exitErr("delete", err)
			}
			printJSON(map[string]bool{"deleted": deleted})
		},
	}

	var (
		content   string
		tags      []string
		metaPairs []string
	)
	updateCmd := &cobra.Command{
		Use:   "update <layer> <id>",
		Short: "Partially update one memory",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			store, err := a.layerStore(args[0])
			if err != nil {
				exitErr("resolve layer", err)
			}
			meta, err := parseMetaPairs(metaPairs)
			if err != nil {
				exitErr("parse --meta", err)
			}

			req := memory.UpdateRequest{Metadata: meta}
			if cmd.Flags().Changed("content") {
				req.Content = &content
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = tags
			}

			rec, ok, err := store.Update(cmd.Context(), args[1], req)
			if err != nil {
				exitErr("update", err)
			}
			if !ok {
				exitErr("update", fmt.Errorf("no record %s in %s", args[1], args[0]))
			}
			printJSON(rec)
		},
	}
	updateCmd.Flags().StringVar(&content, "content", "", "Replacement content")
	updateCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Replacement tag set")
	updateCmd.Flags().StringArrayVarP(&metaPairs, "meta", "m", nil, "Metadata key=value to merge (repeatable)")

	RootCmd.AddCommand(getCmd, forgetCmd, updateCmd)
}
