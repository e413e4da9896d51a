package main

import (
	"fmt"

	"github.com/aretw0/tableau/internal/presentation/graph"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the scene tree visualization",
	Long:  `Builds the configured scene and outputs a Mermaid diagram (graph TD) of its node tree, highlighting the visible frame.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		srv, err := startServer(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		overlay := &graph.GraphOverlay{Current: playback.FramePath(srv.Playback.State().CurrentIndex)}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(srv.Scene.Snapshot().Nodes, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
