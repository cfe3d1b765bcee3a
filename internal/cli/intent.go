package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/workpal/workpal/internal/config"
	"github.com/workpal/workpal/internal/intent"
)

var intentUserID string

var intentCmd = &cobra.Command{
	Use:   "intent <json-or-file>",
	Short: "Execute a single intent from a JSON document",
	Long:  "Executes one intent directly, bypassing the LLM. The argument is either inline JSON or a path to a JSON file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := []byte(args[0])
		if data, err := os.ReadFile(args[0]); err == nil {
			raw = data
		}

		var it intent.Intent
		if err := json.Unmarshal(raw, &it); err != nil {
			return fmt.Errorf("parse intent JSON: %w", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		svc, exec, err := buildExecutor(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := exec.Run(intentUserID, it)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	intentCmd.Flags().StringVar(&intentUserID, "user", "default", "user ID for rules and registrations")
}
