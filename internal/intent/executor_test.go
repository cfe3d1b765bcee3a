package intent

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/workpal/workpal/internal/policy"
	"github.com/workpal/workpal/internal/store"
)

type fakeGate struct {
	byAction map[string]policy.Decision
	err      error
}

func (g *fakeGate) Check(user, department, action string) (policy.Decision, error) {
	if g.err != nil {
		return policy.Decision{}, g.err
	}
	if d, ok := g.byAction[action]; ok {
		return d, nil
	}
	return policy.Decision{Allowed: true, Reason: "ok"}, nil
}

type fakeRules struct {
	deptRules map[string]string
	autoSend  bool
	flagErr   error
}

func (r *fakeRules) LatestDepartmentRule(user, department string) (string, bool, error) {
	text, ok := r.deptRules[department]
	return text, ok, nil
}

func (r *fakeRules) AutoSendOnResignation(user string) (bool, error) {
	return r.autoSend, r.flagErr
}

type fakeFiles struct {
	paths map[string]string
}

func (f *fakeFiles) LatestSpreadsheetPath(user, department string) (string, bool, error) {
	p, ok := f.paths[department]
	return p, ok, nil
}

type auditEntry struct {
	recipient string
	subject   string
	status    string
	errDetail string
}

type fakeAudit struct {
	entries []auditEntry
	err     error
}

func (a *fakeAudit) RecordEmailAttempt(user, recipient, subject, body, status, errorDetail string) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, auditEntry{recipient: recipient, subject: subject, status: status, errDetail: errorDetail})
	return nil
}

type fakeSheets struct {
	rows        []map[string]any
	readErr     error
	updateCount int
	deleteCount int
	insertErr   error
	lookupEmail string
	lookupOK    bool

	inserted []any
	updates  []map[string]any
}

func (s *fakeSheets) Read(path, sheetName, condition string) ([]map[string]any, error) {
	return s.rows, s.readErr
}

func (s *fakeSheets) Insert(path, sheetName string, values any) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, values)
	return nil
}

func (s *fakeSheets) Update(path, sheetName, condition string, values map[string]any) (int, error) {
	s.updates = append(s.updates, values)
	return s.updateCount, nil
}

func (s *fakeSheets) Delete(path, sheetName, condition string) (int, error) {
	return s.deleteCount, nil
}

func (s *fakeSheets) LookupEmailByName(path, sheetName, name string) (string, bool, error) {
	return s.lookupEmail, s.lookupOK, nil
}

type fakeMailer struct {
	err  error
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, fmt.Sprintf("%s|%s", to, subject))
	return nil
}

type executorFixture struct {
	gate   *fakeGate
	rules  *fakeRules
	files  *fakeFiles
	audit  *fakeAudit
	sheets *fakeSheets
	mailer *fakeMailer
	exec   *Executor
}

func newFixture() *executorFixture {
	f := &executorFixture{
		gate:   &fakeGate{},
		rules:  &fakeRules{deptRules: map[string]string{}},
		files:  &fakeFiles{paths: map[string]string{"HR": "/data/hr/hr.xlsx"}},
		audit:  &fakeAudit{},
		sheets: &fakeSheets{},
		mailer: &fakeMailer{},
	}
	f.exec = NewExecutor(f.gate, f.rules, f.files, f.audit, f.sheets, f.mailer)
	return f
}

func resignedUpdate() Intent {
	return Intent{
		Action:     ActionUpdate,
		Department: "HR",
		Sheet:      "Employees",
		Condition:  "id=1",
		Values: Values{Kind: ValuesMapping, Mapping: map[string]any{
			"status":        "Resigned",
			"employee_name": "Alice",
		}},
	}
}

func TestResignationCascadeSendsAndAudits(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.sheets.updateCount = 1
	f.sheets.lookupEmail = "alice@example.com"
	f.sheets.lookupOK = true

	res, err := f.exec.Run("u1", resignedUpdate())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatalf("primary UPDATE must succeed, got %+v", res)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(f.mailer.sent))
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.status != store.EmailStatusSent {
		t.Fatalf("expected SENT, got %q", entry.status)
	}
	if entry.subject != "Resignation Acceptance" {
		t.Fatalf("unexpected subject %q", entry.subject)
	}
}

func TestCascadeTransportFailureAuditedAsFailed(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.sheets.updateCount = 1
	f.sheets.lookupEmail = "alice@example.com"
	f.sheets.lookupOK = true
	f.mailer.err = errors.New("smtp: connection refused")

	res, err := f.exec.Run("u1", resignedUpdate())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatal("transport failure in the cascade must not fail the UPDATE")
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected one audit record, got %d", len(f.audit.entries))
	}
	if f.audit.entries[0].status != store.EmailStatusFailed {
		t.Fatalf("expected FAILED, got %q", f.audit.entries[0].status)
	}
	if f.audit.entries[0].errDetail == "" {
		t.Fatal("failed audit entry must carry error detail")
	}
}

func TestCascadeFiresOnZeroMatchedRows(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.sheets.updateCount = 0
	f.sheets.lookupEmail = "alice@example.com"
	f.sheets.lookupOK = true

	res, err := f.exec.Run("u1", resignedUpdate())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success || !strings.Contains(res.Message, "0 rows") {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("cascade keys off VALUES, not matched rows; sends=%d", len(f.mailer.sent))
	}
}

func TestCascadeSkippedWhenFlagOff(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = false
	f.sheets.updateCount = 1

	if _, err := f.exec.Run("u1", resignedUpdate()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.mailer.sent) != 0 || len(f.audit.entries) != 0 {
		t.Fatal("no cascade expected when auto-send flag is off")
	}
}

func TestCascadeNameFallbackFromRows(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.sheets.updateCount = 1
	f.sheets.rows = []map[string]any{{"Name": "Bob", "Email": "bob@example.com"}}
	f.sheets.lookupEmail = "bob@example.com"
	f.sheets.lookupOK = true

	it := resignedUpdate()
	it.Values = Values{Kind: ValuesMapping, Mapping: map[string]any{"status": "resigned"}}

	if _, err := f.exec.Run("u1", it); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected cascade send after row fallback, got %d", len(f.mailer.sent))
	}
}

func TestCascadeBodyUsesHRRuleTemplate(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.rules.deptRules["HR"] = "Dear {name}, HR accepts your resignation per policy."
	f.sheets.updateCount = 1
	f.sheets.lookupEmail = "alice@example.com"
	f.sheets.lookupOK = true

	var gotBody string
	f.exec.mailer = sendFunc(func(to, subject, body string) error {
		gotBody = body
		return nil
	})

	if _, err := f.exec.Run("u1", resignedUpdate()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(gotBody, "Dear Alice,") {
		t.Fatalf("expected {name} substitution, got %q", gotBody)
	}
}

type sendFunc func(to, subject, body string) error

func (f sendFunc) Send(to, subject, body string) error { return f(to, subject, body) }

func TestCascadeBlockedByEmailGateLeavesUpdateIntact(t *testing.T) {
	f := newFixture()
	f.rules.autoSend = true
	f.sheets.updateCount = 1
	f.sheets.lookupEmail = "alice@example.com"
	f.sheets.lookupOK = true
	f.gate.byAction = map[string]policy.Decision{
		"SEND_EMAIL": {Allowed: false, Reason: "Disallowed by central rules markers."},
	}

	res, err := f.exec.Run("u1", resignedUpdate())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatal("denied cascade must not fail the UPDATE")
	}
	if len(f.mailer.sent) != 0 {
		t.Fatal("denied cascade must not send")
	}
}

func TestSendEmailForbiddenOutsideHR(t *testing.T) {
	f := newFixture()
	it := Intent{
		Action:       ActionSendEmail,
		Department:   "Accounts",
		EmployeeName: "Alice",
		Email:        "alice@example.com",
		Subject:      "Hello",
		Body:         "World",
	}
	_, _, err := f.exec.Execute("u1", it)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatal("no send attempt expected")
	}
	if len(f.audit.entries) != 0 {
		t.Fatal("no audit record expected")
	}
}

func TestSendEmailValidations(t *testing.T) {
	f := newFixture()

	base := Intent{Action: ActionSendEmail, Department: "HR", EmployeeName: "Alice", Email: "alice@example.com", Subject: "S", Body: "B"}

	missingName := base
	missingName.EmployeeName = ""
	if _, _, err := f.exec.Execute("u1", missingName); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("missing name: expected ErrBadRequest, got %v", err)
	}

	badShape := base
	badShape.Email = "not-an-address"
	if _, _, err := f.exec.Execute("u1", badShape); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad address: expected ErrBadRequest, got %v", err)
	}

	missingBody := base
	missingBody.Body = ""
	if _, _, err := f.exec.Execute("u1", missingBody); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("missing body: expected ErrBadRequest, got %v", err)
	}
}

func TestSendEmailResolvesAddressFromHRSheet(t *testing.T) {
	f := newFixture()
	f.sheets.lookupEmail = "carol@example.com"
	f.sheets.lookupOK = true

	it := Intent{Action: ActionSendEmail, Department: "hr", EmployeeName: "Carol", Subject: "S", Body: "B"}
	res, _, err := f.exec.Execute("u1", it)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(f.mailer.sent) != 1 || !strings.HasPrefix(f.mailer.sent[0], "carol@example.com|") {
		t.Fatalf("unexpected sends %v", f.mailer.sent)
	}
}

func TestSendEmailUnresolvableName(t *testing.T) {
	f := newFixture()
	f.sheets.lookupOK = false
	it := Intent{Action: ActionSendEmail, Department: "HR", EmployeeName: "Ghost", Subject: "S", Body: "B"}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestApprovalRequiredIsNonExecutingResult(t *testing.T) {
	f := newFixture()
	f.gate.byAction = map[string]policy.Decision{
		"UPDATE": {Allowed: false, RequiresApproval: true},
	}
	res, _, err := f.exec.Execute("u1", resignedUpdate())
	if err != nil {
		t.Fatalf("approval is a business outcome, not an error: %v", err)
	}
	if res.Success {
		t.Fatal("approval-required must not execute")
	}
	if !strings.Contains(res.Message, "approval") {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if len(f.sheets.updates) != 0 {
		t.Fatal("row store must not be touched")
	}
}

func TestPolicyDenialIsNonExecutingResult(t *testing.T) {
	f := newFixture()
	f.gate.byAction = map[string]policy.Decision{
		"DELETE": {Allowed: false},
	}
	it := Intent{Action: ActionDelete, Department: "HR", Sheet: "Employees", Condition: "id=1"}
	res, _, err := f.exec.Execute("u1", it)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Success || !strings.Contains(res.Message, "policy") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInsertRequiresValues(t *testing.T) {
	f := newFixture()
	it := Intent{Action: ActionInsert, Department: "HR"}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestUpdateRequiresMappingValues(t *testing.T) {
	f := newFixture()
	it := Intent{
		Action:     ActionUpdate,
		Department: "HR",
		Sheet:      "Employees",
		Condition:  "id=1",
		Values:     Values{Kind: ValuesRaw, Raw: "status=resigned"},
	}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestMissingRegistrationIsBadRequest(t *testing.T) {
	f := newFixture()
	it := Intent{Action: ActionRead, Department: "Sales"}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestExplicitPathSkipsRegistrationLookup(t *testing.T) {
	f := newFixture()
	f.sheets.rows = []map[string]any{{"Name": "Alice"}}
	it := Intent{Action: ActionRead, Department: "Sales", ExcelPath: "/tmp/sales.xlsx"}
	res, _, err := f.exec.Execute("u1", it)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows, ok := res.Data.([]map[string]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("unexpected data %+v", res.Data)
	}
}

func TestTemplateReturnsLatestRuleText(t *testing.T) {
	f := newFixture()
	f.rules.deptRules["Law"] = "Contract template: ..."
	it := Intent{Action: ActionTemplate, Department: "Law"}
	res, _, err := f.exec.Execute("u1", it)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["rule_text"] != "Contract template: ..." {
		t.Fatalf("unexpected data %+v", res.Data)
	}
}

func TestWorkflowWithoutRulesIsNotFound(t *testing.T) {
	f := newFixture()
	it := Intent{Action: ActionWorkflow, Department: "Admin"}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnsupportedActionDefendedIndependently(t *testing.T) {
	f := newFixture()
	it := Intent{Action: Action("ROUTE"), Department: "HR"}
	if _, _, err := f.exec.Execute("u1", it); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
