package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Zeigt die Version an",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
		for _, c := range []string{"session", "recognition", "translation", "synthesis", "api"} {
			fmt.Printf("  %-12s %s\n", c+":", version.ComponentVersion(c))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
