package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the agent's self-model",
	}

	var (
		aspect string
		tags   []string
	)
	storeCmd := &cobra.Command{
		Use:   "store <content>",
		Short: "Store an identity record under an aspect",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			rec, err := a.stores.Identity.StoreAspect(cmd.Context(), aspect, args[0], tags, nil, "cli")
			if err != nil {
				exitErr("store identity", err)
			}
			printJSON(rec)
		},
	}
	storeCmd.Flags().StringVar(&aspect, "aspect", "other", "Identity aspect (unknown values map to other)")
	storeCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags")

	var perAspect int
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show records grouped by aspect",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			profile, err := a.stores.Identity.Profile(cmd.Context(), perAspect)
			if err != nil {
				exitErr("profile", err)
			}
			printJSON(profile)
		},
	}
	profileCmd.Flags().IntVar(&perAspect, "per-aspect", 5, "Records per aspect")

	var limit int
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search identity records by similarity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			hits, err := a.stores.Identity.Search(cmd.Context(), args[0], aspect, limit)
			if err != nil {
				exitErr("search identity", err)
			}
			printJSON(hits)
		},
	}
	searchCmd.Flags().StringVar(&aspect, "aspect", "", "Restrict to one aspect")
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum results")

	identityCmd.AddCommand(storeCmd, profileCmd, searchCmd)
	RootCmd.AddCommand(identityCmd)
}
