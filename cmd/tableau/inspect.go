package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tableau/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the scene, playback state and controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		srv, err := startServer(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		report := tui.SceneReport(srv.Scene.Snapshot(), srv.Playback.State(), srv.Panel.Snapshot())
		raw, _ := cmd.Flags().GetBool("raw")
		if raw || !isTerminal(cmd.OutOrStdout()) {
			fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		}
		out, err := tui.NewRenderer()(report)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("raw", false, "Print markdown without terminal styling (implied when stdout is not a terminal)")
}
