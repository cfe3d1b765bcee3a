package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/workpal/workpal/internal/config"
	"github.com/workpal/workpal/internal/intent"
	"github.com/workpal/workpal/internal/provider"
)

// fallbackReply is returned when the LLM produces no usable output.
const fallbackReply = "The AI engine did not return a usable response. " +
	"No automation has been executed. Please verify your " +
	"LLM configuration or try again."

// RuleSource supplies the rule documents injected into the system
// prompt.
type RuleSource interface {
	LatestCentralRules(userID string) ([]string, error)
	LatestDepartmentRule(userID, department string) (string, bool, error)
}

// IntentRunner executes one parsed intent including its follow-ups.
type IntentRunner interface {
	Run(userID string, it intent.Intent) (intent.Result, error)
}

// ChatRequest is one user message addressed to the automation brain.
type ChatRequest struct {
	UserID      string   `json:"user_id"`
	Message     string   `json:"message"`
	Departments []string `json:"departments,omitempty"`
}

// ChatResponse carries the raw LLM reply plus every parsed intent and
// its execution outcome. Intent holds the first parsed intent and
// ExecutionResult the last outcome, mirroring what single-intent
// clients expect.
type ChatResponse struct {
	Reply            string          `json:"reply"`
	Intent           *intent.Intent  `json:"intent,omitempty"`
	ExecutionResult  *intent.Result  `json:"execution_result,omitempty"`
	Intents          []intent.Intent `json:"intents,omitempty"`
	ExecutionResults []intent.Result `json:"execution_results,omitempty"`
}

// Orchestrator wires the chat flow together.
type Orchestrator struct {
	llm    provider.LLMProvider
	rules  RuleSource
	runner IntentRunner
	model  config.ModelConfig
}

// New creates an orchestrator.
func New(llm provider.LLMProvider, rules RuleSource, runner IntentRunner, model config.ModelConfig) *Orchestrator {
	return &Orchestrator{llm: llm, rules: rules, runner: runner, model: model}
}

// Chat runs one full round: prompt assembly, LLM call, intent parsing
// and per-intent execution. Failed intents become non-successful
// results; they never abort the remaining intents.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	departments := req.Departments
	if len(departments) == 0 {
		departments = DepartmentRoster
	}

	deptRuleTexts := make(map[string]string, len(departments))
	for _, dept := range departments {
		text, ok, err := o.rules.LatestDepartmentRule(req.UserID, dept)
		if err != nil {
			return nil, err
		}
		if ok {
			deptRuleTexts[dept] = text
		}
	}

	centralRules, err := o.rules.LatestCentralRules(req.UserID)
	if err != nil {
		return nil, err
	}
	centralRulesText := strings.Join(centralRules, "\n\n")

	systemPrompt := BuildSystemPrompt(departments, deptRuleTexts, centralRulesText)

	resp, err := o.llm.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Message},
		},
		Model:       o.model.Name,
		MaxTokens:   o.model.MaxTokens,
		Temperature: o.model.Temperature,
	})
	if err != nil {
		return nil, err
	}

	reply := resp.Content
	if isUnusableReply(reply) {
		slog.Warn("LLM returned an unusable reply, skipping automation", "user", req.UserID)
		return &ChatResponse{Reply: fallbackReply}, nil
	}

	intents := intent.ParseIntents(reply)
	results := make([]intent.Result, 0, len(intents))
	for _, it := range intents {
		res, err := o.runner.Run(req.UserID, it)
		if err != nil {
			slog.Warn("Intent execution failed", "action", it.Action, "department", it.Department, "error", err)
			res = intent.Result{Success: false, Message: err.Error()}
		}
		results = append(results, res)
	}

	out := &ChatResponse{Reply: reply}
	if len(intents) > 0 {
		out.Intents = intents
		out.Intent = &intents[0]
	}
	if len(results) > 0 {
		out.ExecutionResults = results
		out.ExecutionResult = &results[len(results)-1]
	}
	return out, nil
}

// isUnusableReply detects empty or sentinel-only LLM output.
func isUnusableReply(reply string) bool {
	switch strings.TrimSpace(reply) {
	case "", "<s>", "</s>":
		return true
	}
	return false
}
