package store

import "time"

// Schema is applied on open. Rule documents and spreadsheet
// registrations are append-only; "latest wins" is resolved at query
// time so older documents stay available for audit.
const Schema = `
CREATE TABLE IF NOT EXISTS central_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	rule_text TEXT NOT NULL,
	auto_send_on_resignation BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_central_rules_user ON central_rules(user_id);

CREATE TABLE IF NOT EXISTS department_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	department TEXT NOT NULL,
	rule_text TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_department_rules_user_dept ON department_rules(user_id, department);

CREATE TABLE IF NOT EXISTS department_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	department TEXT NOT NULL,
	excel_path TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_department_files_user_dept ON department_files(user_id, department);

CREATE TABLE IF NOT EXISTS email_audit (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	recipient TEXT NOT NULL,
	subject TEXT NOT NULL,
	body_excerpt TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_detail TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_email_audit_user ON email_audit(user_id);
`

// Email audit statuses.
const (
	EmailStatusSent   = "SENT"
	EmailStatusFailed = "FAILED"
)

// CentralRule is one central authority document.
type CentralRule struct {
	ID                    int64     `json:"id"`
	UserID                string    `json:"user_id"`
	RuleText              string    `json:"rule_text"`
	AutoSendOnResignation bool      `json:"auto_send_on_resignation"`
	CreatedAt             time.Time `json:"created_at"`
}

// DepartmentRule is one per-department instruction/workflow document.
type DepartmentRule struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Department string    `json:"department"`
	RuleText   string    `json:"rule_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// DepartmentFile links a (user, department) to a spreadsheet path.
type DepartmentFile struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Department string    `json:"department"`
	ExcelPath  string    `json:"excel_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmailAuditRecord is a write-once log entry for an attempted send.
type EmailAuditRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	BodyExcerpt string    `json:"body_excerpt"`
	Status      string    `json:"status"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
