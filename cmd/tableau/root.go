package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tableau",
	Short: "Tableau serves a live 3D scene and plays back recorded captures",
	Long: `Tableau keeps a path-addressed 3D scene graph, streams atomic updates of it to
connected viewers over SSE, and plays back prerecorded frames (point cloud, camera
pose and image) by switching which frame subtree is visible.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "tableau.yaml", "Configuration file (YAML or JSON); defaults apply when it does not exist")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides the config file)")
	rootCmd.PersistentFlags().Int("frames", 0, "Number of synthetic frames to generate (overrides the config file)")
}
