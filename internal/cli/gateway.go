package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/workpal/workpal/internal/config"
	"github.com/workpal/workpal/internal/intent"
	"github.com/workpal/workpal/internal/mailer"
	"github.com/workpal/workpal/internal/orchestrator"
	"github.com/workpal/workpal/internal/policy"
	"github.com/workpal/workpal/internal/provider"
	"github.com/workpal/workpal/internal/sheet"
	"github.com/workpal/workpal/internal/store"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the WorkPal HTTP gateway",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 WorkPal Gateway")
	fmt.Println("Starting WorkPal Gateway...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	svc, orch, exec, err := buildRuntime(cfg)
	if err != nil {
		fmt.Printf("Startup error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	server := &gatewayServer{
		authToken: cfg.Gateway.AuthToken,
		chat:      orch,
		runner:    exec,
		store:     svc,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("📡 API Server listening on http://%s\n", addr)
	if err := http.ListenAndServe(addr, server.mux()); err != nil {
		fmt.Printf("API Server Error: %v\n", err)
		os.Exit(1)
	}
}

// buildExecutor wires the intent execution stack from config: sqlite
// store, authority gate, spreadsheet store, mailer and executor. The
// LLM provider is not involved; direct intent execution works without
// one.
func buildExecutor(cfg *config.Config) (*store.Service, *intent.Executor, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DatabasePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	svc, err := store.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	gate := policy.NewGate(svc)
	sheets := sheet.NewStore()
	sender := mailer.NewSender(mailer.NewSMTPTransport(cfg.SMTP), cfg.SMTP.MaxAttempts, cfg.SMTP.SendTimeout)
	exec := intent.NewExecutor(gate, svc, svc, svc, sheets, sender)
	return svc, exec, nil
}

// buildRuntime wires the executor stack plus the LLM-backed chat
// orchestrator.
func buildRuntime(cfg *config.Config) (*store.Service, *orchestrator.Orchestrator, *intent.Executor, error) {
	svc, exec, err := buildExecutor(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	llm, err := provider.Resolve(cfg)
	if err != nil {
		svc.Close()
		return nil, nil, nil, err
	}
	slog.Info("LLM provider resolved", "model", llm.DefaultModel())

	orch := orchestrator.New(llm, svc, exec, cfg.Model)
	return svc, orch, exec, nil
}
