// Package store persists rule documents, spreadsheet registrations and
// the email audit log in a local sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Service is the sqlite-backed store shared by the gate, the executor
// and the management surfaces.
type Service struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and applies
// the schema.
func Open(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// AddCentralRule appends a central authority document for a user.
func (s *Service) AddCentralRule(userID, ruleText string, autoSendOnResignation bool) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO central_rules (user_id, rule_text, auto_send_on_resignation) VALUES (?, ?, ?)`,
		userID, ruleText, autoSendOnResignation,
	)
	if err != nil {
		return 0, fmt.Errorf("insert central rule: %w", err)
	}
	return res.LastInsertId()
}

// LatestCentralRules returns every central rule text for a user,
// newest first. All documents participate in authority checks.
func (s *Service) LatestCentralRules(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT rule_text FROM central_rules WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query central rules: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan central rule: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// ListCentralRules returns the full central rule records for a user,
// newest first.
func (s *Service) ListCentralRules(userID string) ([]CentralRule, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, rule_text, auto_send_on_resignation, created_at
		 FROM central_rules WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query central rules: %w", err)
	}
	defer rows.Close()

	var out []CentralRule
	for rows.Next() {
		var r CentralRule
		var created string
		if err := rows.Scan(&r.ID, &r.UserID, &r.RuleText, &r.AutoSendOnResignation, &created); err != nil {
			return nil, fmt.Errorf("scan central rule: %w", err)
		}
		r.CreatedAt = parseSQLiteTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AutoSendOnResignation reports the flag on the most recent central
// rule document; false when the user has none.
func (s *Service) AutoSendOnResignation(userID string) (bool, error) {
	var flag bool
	err := s.db.QueryRow(
		`SELECT auto_send_on_resignation FROM central_rules WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query auto-send flag: %w", err)
	}
	return flag, nil
}

// AddDepartmentRule appends a department rule document.
func (s *Service) AddDepartmentRule(userID, department, ruleText string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO department_rules (user_id, department, rule_text) VALUES (?, ?, ?)`,
		userID, department, ruleText,
	)
	if err != nil {
		return 0, fmt.Errorf("insert department rule: %w", err)
	}
	return res.LastInsertId()
}

// LatestDepartmentRule returns the most recent rule text for a
// (user, department); ok is false when none exists. Older documents
// are retained but not read here.
func (s *Service) LatestDepartmentRule(userID, department string) (string, bool, error) {
	var text string
	err := s.db.QueryRow(
		`SELECT rule_text FROM department_rules WHERE user_id = ? AND department = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, department,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query department rule: %w", err)
	}
	return text, true, nil
}

// RegisterSpreadsheet records a spreadsheet path for a department.
// Multiple uploads per department are allowed; lookups use the latest.
func (s *Service) RegisterSpreadsheet(userID, department, excelPath string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO department_files (user_id, department, excel_path) VALUES (?, ?, ?)`,
		userID, department, excelPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert department file: %w", err)
	}
	return res.LastInsertId()
}

// LatestSpreadsheetPath returns the most recent registration for a
// (user, department); ok is false when none exists.
func (s *Service) LatestSpreadsheetPath(userID, department string) (string, bool, error) {
	var path string
	err := s.db.QueryRow(
		`SELECT excel_path FROM department_files WHERE user_id = ? AND department = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, department,
	).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query department file: %w", err)
	}
	return path, true, nil
}

// RecordEmailAttempt appends one write-once audit entry. The body is
// truncated to an excerpt; audit entries are never mutated.
func (s *Service) RecordEmailAttempt(userID, recipient, subject, body, status, errorDetail string) error {
	const excerptLen = 200
	excerpt := body
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen]
	}
	_, err := s.db.Exec(
		`INSERT INTO email_audit (id, user_id, recipient, subject, body_excerpt, status, error_detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, recipient, subject, excerpt, status, errorDetail,
	)
	if err != nil {
		return fmt.Errorf("insert email audit: %w", err)
	}
	return nil
}

// ListEmailAudit returns recent audit entries for a user, newest first.
func (s *Service) ListEmailAudit(userID string, limit int) ([]EmailAuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, user_id, recipient, subject, body_excerpt, status, error_detail, created_at
		 FROM email_audit WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query email audit: %w", err)
	}
	defer rows.Close()

	var out []EmailAuditRecord
	for rows.Next() {
		var r EmailAuditRecord
		var created string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Recipient, &r.Subject, &r.BodyExcerpt, &r.Status, &r.ErrorDetail, &created); err != nil {
			return nil, fmt.Errorf("scan email audit: %w", err)
		}
		r.CreatedAt = parseSQLiteTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseSQLiteTime handles the formats sqlite emits for CURRENT_TIMESTAMP.
func parseSQLiteTime(raw string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t
		}
	}
	return time.Time{}
}
