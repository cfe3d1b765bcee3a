package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/workpal/workpal/internal/intent"
	"github.com/workpal/workpal/internal/orchestrator"
	"github.com/workpal/workpal/internal/store"
)

// chatService runs one chat round through the orchestrator.
type chatService interface {
	Chat(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
}

// intentRunner executes one intent including cascade follow-ups.
type intentRunner interface {
	Run(userID string, it intent.Intent) (intent.Result, error)
}

// managementStore is the persistence surface behind the management
// endpoints.
type managementStore interface {
	AddCentralRule(userID, ruleText string, autoSendOnResignation bool) (int64, error)
	ListCentralRules(userID string) ([]store.CentralRule, error)
	AddDepartmentRule(userID, department, ruleText string) (int64, error)
	RegisterSpreadsheet(userID, department, excelPath string) (int64, error)
	ListEmailAudit(userID string, limit int) ([]store.EmailAuditRecord, error)
}

// gatewayServer holds the HTTP surface of the gateway.
type gatewayServer struct {
	authToken string
	chat      chatService
	runner    intentRunner
	store     managementStore
}

func (s *gatewayServer) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/workpal/chat", s.authorized(s.handleChat))
	mux.HandleFunc("/intent/execute", s.authorized(s.handleIntentExecute))
	mux.HandleFunc("/central-rules", s.authorized(s.handleCentralRules))
	mux.HandleFunc("/departments/rules", s.authorized(s.handleDepartmentRules))
	mux.HandleFunc("/departments/files", s.authorized(s.handleDepartmentFiles))
	mux.HandleFunc("/email-audit", s.authorized(s.handleEmailAudit))
	return mux
}

// authorized enforces the optional bearer token on every endpoint
// except the health check.
func (s *gatewayServer) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if token != s.authToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *gatewayServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func (s *gatewayServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req orchestrator.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "user_id and message are required", http.StatusBadRequest)
		return
	}
	resp, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type intentExecuteRequest struct {
	UserID string        `json:"user_id"`
	Intent intent.Intent `json:"intent"`
}

func (s *gatewayServer) handleIntentExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req intentExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	res, err := s.runner.Run(req.UserID, req.Intent)
	if err != nil {
		http.Error(w, err.Error(), intentErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type centralRuleRequest struct {
	UserID                string `json:"user_id"`
	RuleText              string `json:"rule_text"`
	AutoSendOnResignation bool   `json:"auto_send_on_resignation"`
}

func (s *gatewayServer) handleCentralRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req centralRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.RuleText) == "" {
			http.Error(w, "user_id and rule_text are required", http.StatusBadRequest)
			return
		}
		id, err := s.store.AddCentralRule(req.UserID, req.RuleText, req.AutoSendOnResignation)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})

	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		rules, err := s.store.ListCentralRules(userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rules)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type departmentRuleRequest struct {
	UserID     string `json:"user_id"`
	Department string `json:"department"`
	RuleText   string `json:"rule_text"`
}

func (s *gatewayServer) handleDepartmentRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req departmentRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Department) == "" || strings.TrimSpace(req.RuleText) == "" {
		http.Error(w, "user_id, department and rule_text are required", http.StatusBadRequest)
		return
	}
	id, err := s.store.AddDepartmentRule(req.UserID, req.Department, req.RuleText)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

type departmentFileRequest struct {
	UserID     string `json:"user_id"`
	Department string `json:"department"`
	ExcelPath  string `json:"excel_path"`
}

func (s *gatewayServer) handleDepartmentFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req departmentFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Department) == "" || strings.TrimSpace(req.ExcelPath) == "" {
		http.Error(w, "user_id, department and excel_path are required", http.StatusBadRequest)
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.ExcelPath), ".xlsx") {
		http.Error(w, "Only .xlsx Excel files are supported.", http.StatusBadRequest)
		return
	}
	id, err := s.store.RegisterSpreadsheet(req.UserID, req.Department, req.ExcelPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *gatewayServer) handleEmailAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.ListEmailAudit(userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// intentErrorStatus maps executor error kinds to HTTP status codes.
func intentErrorStatus(err error) int {
	switch {
	case errors.Is(err, intent.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, intent.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, intent.ErrBadRequest), errors.Is(err, intent.ErrUnsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
