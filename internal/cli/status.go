package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/workpal/workpal/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ WorkPal Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 WorkPal Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, err := os.Stat(configPath); err == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (defaults in effect)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			return
		}
		if cfg.Providers.OpenRouter.APIKey != "" {
			fmt.Println("OpenRouter key: ✓ Set")
		} else {
			fmt.Println("OpenRouter key: ✗ Missing")
		}
		if cfg.Providers.Gemini.APIKey != "" {
			fmt.Println("Gemini key: ✓ Set")
		} else {
			fmt.Println("Gemini key: ✗ Missing")
		}
		if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
			fmt.Println("SMTP:    ✓ Configured")
		} else {
			fmt.Println("SMTP:    ✗ Not configured (SEND_EMAIL will fail)")
		}
		if _, err := os.Stat(cfg.Paths.DatabasePath); err == nil {
			fmt.Println("Store:   ✓ Found (" + cfg.Paths.DatabasePath + ")")
		} else {
			fmt.Println("Store:   ✗ Not created yet")
		}
	},
}
