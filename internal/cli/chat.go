package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/workpal/workpal/internal/config"
	"github.com/workpal/workpal/internal/orchestrator"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message through the automation brain",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		svc, orch, _, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		resp, err := orch.Chat(context.Background(), orchestrator.ChatRequest{
			UserID:  chatUserID,
			Message: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		fmt.Println(resp.Reply)
		if len(resp.ExecutionResults) > 0 {
			fmt.Println()
			for i, res := range resp.ExecutionResults {
				status := "✗"
				if res.Success {
					status = "✓"
				}
				fmt.Printf("%s [%d] %s\n", status, i+1, res.Message)
				if res.Data != nil {
					data, err := json.MarshalIndent(res.Data, "    ", "  ")
					if err == nil {
						fmt.Printf("    %s\n", data)
					}
				}
			}
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "default", "user ID for rules and registrations")
}
