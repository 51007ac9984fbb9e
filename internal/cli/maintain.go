package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemosyneos/mnemo/memory"
)

func init() {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-layer and system statistics",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			stats, err := a.service.Stats(cmd.Context())
			if err != nil {
				exitErr("stats", err)
			}
			printJSON(stats)
		},
	}

	var (
		days   int
		dryRun bool
	)
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete memories older than a cutoff",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			report, err := a.service.Prune(cmd.Context(), days, dryRun)
			if err != nil {
				exitErr("prune", err)
			}
			printJSON(report)
		},
	}
	pruneCmd.Flags().IntVar(&days, "days", 30, "Delete records older than this many days")
	pruneCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild every collection from its own records",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			statuses, err := a.service.Reindex(cmd.Context())
			if err != nil {
				exitErr("reindex", err)
			}
			printJSON(statuses)
		},
	}

	compactCmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact collections when the backend supports it",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			statuses, err := a.service.Compact(cmd.Context())
			if err != nil {
				exitErr("compact", err)
			}
			printJSON(statuses)
		},
	}

	var graphLayers []string
	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the provenance graph over selected layers",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			layers, err := parseLayers(graphLayers)
			if err != nil {
				exitErr("parse --layers", err)
			}
			graph, err := a.service.Graph(cmd.Context(), layers...)
			if err != nil {
				exitErr("graph", err)
			}
			printJSON(graph)
		},
	}
	graphCmd.Flags().StringSliceVar(&graphLayers, "layers", nil, "Layers to include (default: all)")

	var exportLayers []string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as JSON to stdout",
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			layers, err := parseLayers(exportLayers)
			if err != nil {
				exitErr("parse --layers", err)
			}
			if _, err := a.service.Export(cmd.Context(), os.Stdout, layers...); err != nil {
				exitErr("export", err)
			}
		},
	}
	exportCmd.Flags().StringSliceVar(&exportLayers, "layers", nil, "Layers to include (default: all)")

	backupCmd := &cobra.Command{
		Use:   "backup <path>",
		Short: "Write a full snapshot including embeddings",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			if err := a.service.Backup(cmd.Context(), args[0]); err != nil {
				exitErr("backup", err)
			}
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <path>",
		Short: "Load a snapshot, replacing its collections",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := newApp()
			if err != nil {
				exitErr("init", err)
			}
			if err := a.service.Restore(cmd.Context(), args[0]); err != nil {
				exitErr("restore", err)
			}
		},
	}

	RootCmd.AddCommand(statsCmd, pruneCmd, reindexCmd, compactCmd, graphCmd, exportCmd, backupCmd, restoreCmd)
}

func parseLayers(names []string) ([]memory.Layer, error) {
	var layers []memory.Layer
	for _, name := range names {
		layer, ok := memory.ParseLayer(name)
		if !ok {
			return nil, fmt.Errorf("unknown layer %q", name)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
