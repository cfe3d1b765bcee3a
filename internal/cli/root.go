// Package cli implements the workpal command line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/workpal/workpal/internal/cli.version=1.2.3"
	version = "0.9.0"
	logo    = "\n" +
		" __        __         _    ____       _\n" +
		" \\ \\      / /__  _ __| | _|  _ \\ __ _| |\n" +
		"  \\ \\ /\\ / / _ \\| '__| |/ / |_) / _` | |\n" +
		"   \\ V  V / (_) | |  |   <|  __/ (_| | |\n" +
		"    \\_/\\_/ \\___/|_|  |_|\\_\\_|   \\__,_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "workpal",
	Short: "WorkPal - Office Automation Backend",
	Long:  color.CyanString(logo) + "\nAn LLM-driven office automation backend for department databases and HR email.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(intentCmd)
}
