package intent

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/workpal/workpal/internal/policy"
	"github.com/workpal/workpal/internal/sheet"
	"github.com/workpal/workpal/internal/store"
)

// AuthorityGate decides whether an (action, department) pair may run.
type AuthorityGate interface {
	Check(user, department, action string) (policy.Decision, error)
}

// RuleStore supplies rule documents and the auto-send flag.
type RuleStore interface {
	LatestDepartmentRule(user, department string) (string, bool, error)
	AutoSendOnResignation(user string) (bool, error)
}

// RegistrationStore resolves the current spreadsheet per department.
type RegistrationStore interface {
	LatestSpreadsheetPath(user, department string) (string, bool, error)
}

// AuditSink records attempted email sends.
type AuditSink interface {
	RecordEmailAttempt(user, recipient, subject, body, status, errorDetail string) error
}

// RowStore is the spreadsheet mutation surface.
type RowStore interface {
	Read(path, sheetName, condition string) ([]map[string]any, error)
	Insert(path, sheetName string, values any) error
	Update(path, sheetName, condition string, values map[string]any) (int, error)
	Delete(path, sheetName, condition string) (int, error)
	LookupEmailByName(path, sheetName, name string) (string, bool, error)
}

// EmailSender delivers a message, retrying transient failures
// internally before reporting an error.
type EmailSender interface {
	Send(to, subject, body string) error
}

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Executor runs one intent per call. There is no persistent state
// across calls; an UPDATE may emit a follow-up SEND_EMAIL intent that
// the caller loop executes at cascade depth 1.
type Executor struct {
	gate   AuthorityGate
	rules  RuleStore
	files  RegistrationStore
	audit  AuditSink
	sheets RowStore
	mailer EmailSender
}

// NewExecutor wires the executor's collaborators.
func NewExecutor(gate AuthorityGate, rules RuleStore, files RegistrationStore, audit AuditSink, sheets RowStore, mailer EmailSender) *Executor {
	return &Executor{
		gate:   gate,
		rules:  rules,
		files:  files,
		audit:  audit,
		sheets: sheets,
		mailer: mailer,
	}
}

// Run executes an intent and drains its follow-up intents. Follow-up
// failures are logged, never surfaced: they must not fail the primary
// response. Follow-ups of follow-ups are dropped (max cascade depth 1).
func (e *Executor) Run(userID string, it Intent) (Result, error) {
	res, followUps, err := e.Execute(userID, it)
	if err != nil {
		return res, err
	}
	for _, f := range followUps {
		fres, nested, ferr := e.Execute(userID, f)
		if ferr != nil {
			slog.Warn("Cascade intent failed", "action", f.Action, "department", f.Department, "error", ferr)
			continue
		}
		if !fres.Success {
			slog.Warn("Cascade intent did not execute", "action", f.Action, "message", fres.Message)
		}
		if len(nested) > 0 {
			slog.Warn("Cascade depth limit reached, dropping follow-ups", "count", len(nested))
		}
	}
	return res, nil
}

// Execute validates and runs a single intent. Authority denials are
// expected business outcomes and come back as non-executing results;
// validation failures come back as typed errors.
func (e *Executor) Execute(userID string, it Intent) (Result, []Intent, error) {
	action, ok := ParseAction(string(it.Action))
	if !ok {
		return Result{}, nil, fmt.Errorf("%w: %q", ErrUnsupported, it.Action)
	}

	decision, err := e.gate.Check(userID, it.Department, string(action))
	if err != nil {
		return Result{}, nil, err
	}
	if !decision.Allowed {
		if decision.RequiresApproval {
			return Result{Message: "This action requires approval based on company authority rules."}, nil, nil
		}
		return Result{Message: "This action cannot be performed due to company policy restrictions."}, nil, nil
	}

	switch action {
	case ActionRead, ActionInsert, ActionUpdate, ActionDelete:
		return e.executeRowOp(userID, action, it)
	case ActionTemplate, ActionWorkflow:
		res, err := e.executeRuleText(userID, action, it)
		return res, nil, err
	case ActionSendEmail:
		res, err := e.executeSendEmail(userID, it)
		return res, nil, err
	}
	return Result{}, nil, fmt.Errorf("%w: %q", ErrUnsupported, action)
}

// executeRowOp resolves the spreadsheet path and dispatches to the row
// store.
func (e *Executor) executeRowOp(userID string, action Action, it Intent) (Result, []Intent, error) {
	path := it.ExcelPath
	if path == "" {
		registered, ok, err := e.files.LatestSpreadsheetPath(userID, it.Department)
		if err != nil {
			return Result{}, nil, err
		}
		if !ok {
			return Result{}, nil, fmt.Errorf("%w: Excel path not provided and no department file registered", ErrBadRequest)
		}
		path = registered
	}

	switch action {
	case ActionRead:
		rows, err := e.sheets.Read(path, it.Sheet, it.Condition)
		if err != nil {
			return Result{}, nil, mapSheetError(err)
		}
		return Result{Success: true, Message: "READ completed", Data: rows}, nil, nil

	case ActionInsert:
		if it.Values.IsAbsent() {
			return Result{}, nil, fmt.Errorf("%w: INSERT requires VALUES", ErrBadRequest)
		}
		if err := e.sheets.Insert(path, it.Sheet, it.Values.Payload()); err != nil {
			return Result{}, nil, mapSheetError(err)
		}
		return Result{Success: true, Message: "INSERT completed"}, nil, nil

	case ActionUpdate:
		if it.Sheet == "" || it.Condition == "" || it.Values.Kind != ValuesMapping {
			return Result{}, nil, fmt.Errorf("%w: UPDATE requires SHEET, CONDITION and VALUES (mapping column->new value)", ErrBadRequest)
		}
		count, err := e.sheets.Update(path, it.Sheet, it.Condition, it.Values.Mapping)
		if err != nil {
			return Result{}, nil, mapSheetError(err)
		}
		// The cascade keys off the VALUES content, not the matched-row
		// count: an UPDATE that touched zero rows still fires it.
		followUps := e.resignationFollowUps(userID, it, path)
		return Result{Success: true, Message: fmt.Sprintf("UPDATE completed for %d rows", count)}, followUps, nil

	case ActionDelete:
		if it.Sheet == "" || it.Condition == "" {
			return Result{}, nil, fmt.Errorf("%w: DELETE requires SHEET and CONDITION", ErrBadRequest)
		}
		count, err := e.sheets.Delete(path, it.Sheet, it.Condition)
		if err != nil {
			return Result{}, nil, mapSheetError(err)
		}
		return Result{Success: true, Message: fmt.Sprintf("DELETE completed for %d rows", count)}, nil, nil
	}
	return Result{}, nil, fmt.Errorf("%w: %q", ErrUnsupported, action)
}

// executeRuleText serves TEMPLATE and WORKFLOW intents from the latest
// department rule document.
func (e *Executor) executeRuleText(userID string, action Action, it Intent) (Result, error) {
	text, ok, err := e.rules.LatestDepartmentRule(userID, it.Department)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: no department rules found for TEMPLATE/WORKFLOW", ErrNotFound)
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("%s rule_text returned.", action),
		Data:    map[string]any{"rule_text": text},
	}, nil
}

// executeSendEmail validates and sends one HR email, resolving the
// recipient from the HR spreadsheet when no address was given.
func (e *Executor) executeSendEmail(userID string, it Intent) (Result, error) {
	if !strings.EqualFold(it.Department, "HR") {
		return Result{}, fmt.Errorf("%w: SEND_EMAIL is only supported for HR department", ErrForbidden)
	}
	if it.EmployeeName == "" {
		return Result{}, fmt.Errorf("%w: EMPLOYEE_NAME is required for SEND_EMAIL", ErrBadRequest)
	}

	toEmail := strings.TrimSpace(it.Email)
	if toEmail == "" {
		path, ok, err := e.files.LatestSpreadsheetPath(userID, "HR")
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: no HR Excel database registered; cannot resolve employee email", ErrBadRequest)
		}
		found, ok, err := e.sheets.LookupEmailByName(path, it.Sheet, it.EmployeeName)
		if err != nil {
			return Result{}, mapSheetError(err)
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: employee not found in HR database", ErrBadRequest)
		}
		toEmail = strings.TrimSpace(found)
	}

	if !emailShape.MatchString(toEmail) {
		return Result{}, fmt.Errorf("%w: invalid email address format", ErrBadRequest)
	}
	if it.Subject == "" || it.Body == "" {
		return Result{}, fmt.Errorf("%w: SUBJECT and BODY are required for SEND_EMAIL intents", ErrBadRequest)
	}

	// Independent gate check on the synthetic SEND_EMAIL action; the
	// resignation cascade reaches here without the caller's UPDATE
	// check covering it.
	decision, err := e.gate.Check(userID, "HR", string(ActionSendEmail))
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed || decision.RequiresApproval {
		return Result{}, fmt.Errorf("%w: central rules forbid sending this email", ErrForbidden)
	}

	sendErr := e.mailer.Send(toEmail, it.Subject, it.Body)
	status := store.EmailStatusSent
	errorDetail := ""
	if sendErr != nil {
		status = store.EmailStatusFailed
		errorDetail = sendErr.Error()
	}
	if err := e.audit.RecordEmailAttempt(userID, toEmail, it.Subject, it.Body, status, errorDetail); err != nil {
		slog.Error("Email audit write failed", "recipient", toEmail, "error", err)
	}

	if sendErr != nil {
		return Result{Message: "Failed to send email: " + sendErr.Error()}, nil
	}
	return Result{Success: true, Message: "EMAIL sent"}, nil
}

// resignationFollowUps builds the auto-send follow-up for an UPDATE
// that marks an employee as resigned. Every failure here is swallowed
// and logged; the cascade must never fail the original UPDATE.
func (e *Executor) resignationFollowUps(userID string, it Intent, path string) []Intent {
	if !marksResigned(it.Values.Mapping) {
		return nil
	}
	autoSend, err := e.rules.AutoSendOnResignation(userID)
	if err != nil {
		slog.Warn("Auto-send flag lookup failed", "user", userID, "error", err)
		return nil
	}
	if !autoSend {
		return nil
	}

	name := employeeNameFromMapping(it.Values.Mapping)
	if name == "" {
		name = e.employeeNameFromRows(path, it.Sheet, it.Condition)
	}
	if name == "" {
		slog.Warn("Resignation cascade skipped: no employee name resolvable", "user", userID, "condition", it.Condition)
		return nil
	}

	body := e.resignationBody(userID, name)
	return []Intent{{
		Action:       ActionSendEmail,
		Department:   "HR",
		EmployeeName: name,
		Subject:      "Resignation Acceptance",
		Body:         body,
	}}
}

// resignationBody prefers the latest HR rule text with the {name}
// placeholder substituted, falling back to a default acknowledgement.
func (e *Executor) resignationBody(userID, name string) string {
	text, ok, err := e.rules.LatestDepartmentRule(userID, "HR")
	if err != nil {
		slog.Warn("HR rule lookup for resignation body failed", "user", userID, "error", err)
	}
	if ok && strings.TrimSpace(text) != "" {
		return strings.ReplaceAll(text, "{name}", name)
	}
	return fmt.Sprintf("Dear %s, your resignation has been accepted and processed. We wish you all the best in your future endeavors.", name)
}

// marksResigned reports whether the update payload sets a status
// column to "resigned" (case-insensitive, trimmed).
func marksResigned(values map[string]any) bool {
	for key, val := range values {
		if !strings.EqualFold(strings.TrimSpace(key), "status") {
			continue
		}
		if s, ok := val.(string); ok && strings.EqualFold(strings.TrimSpace(s), "resigned") {
			return true
		}
	}
	return false
}

var nameKeys = []string{"employee_name", "name", "full_name"}

// employeeNameFromMapping pulls an employee name directly from the
// update payload.
func employeeNameFromMapping(values map[string]any) string {
	for _, want := range nameKeys {
		for key, val := range values {
			if !strings.EqualFold(strings.TrimSpace(key), want) {
				continue
			}
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// employeeNameFromRows falls back to re-reading the affected rows and
// taking a name-ish column from the first match. Known name headers are
// preferred; remaining candidates are scanned in sorted order since
// row mappings do not preserve header positions.
func (e *Executor) employeeNameFromRows(path, sheetName, condition string) string {
	rows, err := e.sheets.Read(path, sheetName, condition)
	if err != nil {
		slog.Warn("Resignation cascade row re-read failed", "path", path, "error", err)
		return ""
	}
	if len(rows) == 0 {
		return ""
	}
	row := rows[0]
	for _, want := range nameKeys {
		for header, val := range row {
			if strings.EqualFold(strings.TrimSpace(header), want) {
				if s := strings.TrimSpace(fmt.Sprintf("%v", val)); s != "" && val != nil {
					return s
				}
			}
		}
	}
	var candidates []string
	for header := range row {
		if strings.Contains(strings.ToLower(header), "name") {
			candidates = append(candidates, header)
		}
	}
	sort.Strings(candidates)
	for _, header := range candidates {
		if val := row[header]; val != nil {
			if s := strings.TrimSpace(fmt.Sprintf("%v", val)); s != "" {
				return s
			}
		}
	}
	return ""
}

// mapSheetError translates row-store failures into executor error
// kinds: a missing file is NotFound, everything else the caller did
// wrong is BadRequest.
func mapSheetError(err error) error {
	switch {
	case errors.Is(err, sheet.ErrFileNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.Is(err, sheet.ErrCorruptFile),
		errors.Is(err, sheet.ErrSheetNotFound),
		errors.Is(err, sheet.ErrBadValues):
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	default:
		return err
	}
}
