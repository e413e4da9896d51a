package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tableau"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tableau",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tableau version %s\n", strings.TrimSpace(tableau.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
