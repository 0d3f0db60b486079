package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kulai",
	Short: "Interactive lesson runner",
	Long:  "Kulai — terminal client for time-bounded, resumable quiz lessons.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Base URL of the lesson service (overrides KULAI_SERVER_URL; empty runs offline)")
	rootCmd.PersistentFlags().String("cache", "", "Path to the SQLite cache file (overrides KULAI_CACHE_PATH)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}
