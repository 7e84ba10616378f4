package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/collegebuddy/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("collegebuddy version %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
