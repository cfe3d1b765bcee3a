package sheet

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

var nameHeaderCandidates = []string{"name", "employee_name", "full_name"}
var emailHeaderCandidates = []string{"email", "e-mail", "email_address", "mail"}

// LookupEmailByName resolves an employee email from a workbook by
// exact (case-insensitive, trimmed) name match. Header detection is
// tolerant of casing and padding; when several rows share the name the
// first match wins and the ambiguity is logged.
func (s *Store) LookupEmailByName(path, sheetName, employeeName string) (string, bool, error) {
	rows, err := s.Read(path, sheetName, "")
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for header := range rows[0] {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	nameCol := pickHeader(headers, nameHeaderCandidates)
	emailCol := pickHeader(headers, emailHeaderCandidates)
	if nameCol == "" || emailCol == "" {
		return "", false, fmt.Errorf("no name/email columns found in %s", path)
	}

	want := strings.ToLower(strings.TrimSpace(employeeName))
	var matches []string
	for _, row := range rows {
		name := strings.ToLower(strings.TrimSpace(toString(row[nameCol])))
		if name != "" && name == want {
			matches = append(matches, strings.TrimSpace(toString(row[emailCol])))
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	if len(matches) > 1 {
		slog.Warn("Multiple email matches for employee, using first",
			"employee", employeeName, "matches", len(matches), "path", path)
	}
	return matches[0], true, nil
}

// pickHeader resolves a column deterministically: candidates are tried
// in priority order against the sorted header list, so a sheet carrying
// both "Name" and "Full_Name" always yields the same pick.
func pickHeader(sortedHeaders []string, candidates []string) string {
	for _, c := range candidates {
		for _, h := range sortedHeaders {
			if strings.ToLower(strings.TrimSpace(h)) == c {
				return h
			}
		}
	}
	return ""
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
