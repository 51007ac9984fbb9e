package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	var (
		tags      []string
		source    string
		metaPairs []string
		eventTime string
	)

	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Store a memory in a layer",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}

			meta, err := parseMetaPairs(metaPairs)
			if err != nil {
				exitErr("parse --meta", err)
			}

			ctx := cmd.Context()
			var rec *memory.Record
			if layerFlag == string(memory.LayerEpisodic) {
				var et time.Time
				if eventTime != "" {
					et, err = time.Parse(time.RFC3339, eventTime)
					if err != nil {
						exitErr("parse --event-time", err)
					}
				}
				rec, err = a.stores.Episodic.StoreEvent(ctx, args[0], et, tags, meta, source)
			} else {
				store, serr := a.layerStore(layerFlag)
				if serr != nil {
					exitErr("resolve layer", serr)
				}
				rec, err = store.Store(ctx, args[0], tags, meta, source)
			}
			if err != nil {
				exitErr("store", err)
			}
			printJSON(rec)
		},
	}

	cmd.Flags().StringVarP(&layerFlag, "layer", "l", "semantic", "Target layer")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Tags (repeatable or comma-separated)")
	cmd.Flags().StringVarP(&source, "source", "s", "cli", "Record source")
	cmd.Flags().StringArrayVarP(&metaPairs, "meta", "m", nil, "Metadata key=value (repeatable)")
	cmd.Flags().StringVar(&eventTime, "event-time", "", "Event time (RFC3339, episodic only)")
	RootCmd.AddCommand(cmd)
}

func parseMetaPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[k] = v
	}
	return out, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
