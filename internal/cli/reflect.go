package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	var (
		query      string
		tags       []string
		timeRange  string
		maxSources int
		background bool
	)

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Synthesize reflections from stored memories",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			if a.reflector == nil {
				exitErr("reflect", fmt.Errorf("no completion provider configured (set ANTHROPIC_API_KEY or OPENAI_API_KEY)"))
			}

			opts := memory.ReflectOptions{
				Query:      query,
				Tags:       tags,
				TimeRange:  timeRange,
				MaxSources: maxSources,
			}

			if background {
				a.runner.Dispatch(context.Background(), "reflection", func(ctx context.Context) error {
					_, err := a.reflector.Generate(ctx, opts)
					return err
				})
				a.runner.Wait()
				return
			}

			recs, err := a.reflector.Generate(cmd.Context(), opts)
			if err != nil {
				exitErr("generate reflections", err)
			}
			printJSON(recs)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Sample memories matching this query")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Sample memories carrying all of these tags")
	cmd.Flags().StringVar(&timeRange, "time-range", "", "Bound sampling, e.g. 7d or 24h")
	cmd.Flags().IntVar(&maxSources, "max-sources", memory.DefaultMaxSources, "Sampling budget")
	cmd.Flags().BoolVar(&background, "background", false, "Run as a background job")
	RootCmd.AddCommand(cmd)
}
