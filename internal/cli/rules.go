package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/workpal/workpal/internal/config"
	"github.com/workpal/workpal/internal/store"
)

var (
	rulesUserID   string
	rulesAutoSend bool
	filesUserID   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage central and department rule documents",
}

var rulesCentralAddCmd = &cobra.Command{
	Use:   "central-add <rule-file>",
	Short: "Store a central company rules document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rules file: %w", err)
		}
		svc, err := openStore()
		if err != nil {
			return err
		}
		defer svc.Close()

		id, err := svc.AddCentralRule(rulesUserID, string(text), rulesAutoSend)
		if err != nil {
			return err
		}
		fmt.Printf("Central rule stored (id=%d, auto_send_on_resignation=%v)\n", id, rulesAutoSend)
		return nil
	},
}

var rulesCentralListCmd = &cobra.Command{
	Use:   "central-list",
	Short: "List stored central rule documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStore()
		if err != nil {
			return err
		}
		defer svc.Close()

		rules, err := svc.ListCentralRules(rulesUserID)
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No central rules stored.")
			return nil
		}
		for _, r := range rules {
			fmt.Printf("[%d] %s auto_send=%v\n%s\n\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.AutoSendOnResignation, r.RuleText)
		}
		return nil
	},
}

var rulesDeptAddCmd = &cobra.Command{
	Use:   "dept-add <department> <rule-file>",
	Short: "Store a department rules document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read rules file: %w", err)
		}
		svc, err := openStore()
		if err != nil {
			return err
		}
		defer svc.Close()

		id, err := svc.AddDepartmentRule(rulesUserID, args[0], string(text))
		if err != nil {
			return err
		}
		fmt.Printf("Department rule stored (id=%d, department=%s)\n", id, args[0])
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage department spreadsheet registrations",
}

var filesRegisterCmd = &cobra.Command{
	Use:   "register <department> <excel-path>",
	Short: "Register a department Excel database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("spreadsheet not found: %s", path)
		}
		svc, err := openStore()
		if err != nil {
			return err
		}
		defer svc.Close()

		id, err := svc.RegisterSpreadsheet(filesUserID, args[0], path)
		if err != nil {
			return err
		}
		fmt.Printf("Spreadsheet registered (id=%d, department=%s, path=%s)\n", id, args[0], path)
		return nil
	},
}

func openStore() (*store.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return store.Open(cfg.Paths.DatabasePath)
}

func init() {
	rulesCmd.PersistentFlags().StringVar(&rulesUserID, "user", "default", "user ID owning the documents")
	rulesCentralAddCmd.Flags().BoolVar(&rulesAutoSend, "auto-send-on-resignation", false, "auto-send the HR acceptance email when an UPDATE marks an employee resigned")
	rulesCmd.AddCommand(rulesCentralAddCmd)
	rulesCmd.AddCommand(rulesCentralListCmd)
	rulesCmd.AddCommand(rulesDeptAddCmd)

	filesCmd.PersistentFlags().StringVar(&filesUserID, "user", "default", "user ID owning the registration")
	filesCmd.AddCommand(filesRegisterCmd)
}
