package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	affectCmd := &cobra.Command{
		Use:   "affect",
		Short: "Manage emotionally colored memories",
	}

	var (
		valence   float64
		intensity int
		emotions  []string
		tags      []string
		analyze   bool
	)
	storeCmd := &cobra.Command{
		Use:   "store <content>",
		Short: "Store an affective memory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			var rec *memory.Record
			if analyze {
				rec, err = a.stores.Affective.StoreAnalyzed(cmd.Context(), args[0], tags, nil, "cli")
			} else {
				rec, err = a.stores.Affective.StoreAffect(cmd.Context(), args[0], memory.Affect{
					Valence:   valence,
					Intensity: intensity,
					Emotions:  emotions,
				}, tags, nil, "cli")
			}
			if err != nil {
				exitErr("store affect", err)
			}
			printJSON(rec)
		},
	}
	storeCmd.Flags().Float64Var(&valence, "valence", 0, "Valence in [-1, 1]")
	storeCmd.Flags().IntVar(&intensity, "intensity", 5, "Intensity in [1, 10]")
	storeCmd.Flags().StringSliceVar(&emotions, "emotions", nil, "Emotion words")
	storeCmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags")
	storeCmd.Flags().BoolVar(&analyze, "analyze", false, "Let the LLM rate valence/intensity/emotions")

	var limit int
	emotionCmd := &cobra.Command{
		Use:   "emotion <emotion>",
		Short: "List memories carrying an emotion, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			recs, err := a.stores.Affective.RetrieveByEmotion(cmd.Context(), args[0], limit)
			if err != nil {
				exitErr("retrieve by emotion", err)
			}
			printJSON(recs)
		},
	}
	emotionCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the most recent affective memories",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			recs, err := a.stores.Affective.Feed(cmd.Context(), limit)
			if err != nil {
				exitErr("feed", err)
			}
			printJSON(recs)
		},
	}
	feedCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")

	affectCmd.AddCommand(storeCmd, emotionCmd, feedCmd)
	RootCmd.AddCommand(affectCmd)
}
