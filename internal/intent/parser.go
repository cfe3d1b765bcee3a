package intent

import (
	"regexp"
	"strings"
)

// blockMarker starts each intent block in LLM reply text.
const blockMarker = "INTENT:"

// fieldNames in the order they appear in the block grammar.
var fieldNames = []string{
	"ACTION",
	"DEPARTMENT",
	"EXCEL_PATH",
	"SHEET",
	"CONDITION",
	"VALUES",
	"NOTES",
	"EMPLOYEE_NAME",
	"EMAIL",
	"SUBJECT",
	"BODY",
}

// fieldPattern matches any recognized field label. Each field value
// runs from its label to the next label or end of chunk, so values may
// span multiple lines.
var fieldPattern = regexp.MustCompile(
	`(?i)(ACTION|DEPARTMENT|EXCEL_PATH|SHEET|CONDITION|VALUES|NOTES|EMPLOYEE_NAME|EMAIL|SUBJECT|BODY)\s*:`)

// ParseIntents extracts every INTENT block from raw LLM reply text,
// preserving order of appearance. Malformed blocks are skipped
// silently; the result may be empty.
func ParseIntents(raw string) []Intent {
	if !strings.Contains(raw, blockMarker) {
		return nil
	}

	var intents []Intent
	chunks := splitAtMarkers(raw)
	for _, chunk := range chunks {
		if it, ok := parseBlock(chunk); ok {
			intents = append(intents, it)
		}
	}
	return intents
}

// splitAtMarkers cuts the text at each INTENT: occurrence; every chunk
// starts at a marker and runs to the next marker or end of text.
func splitAtMarkers(raw string) []string {
	var chunks []string
	rest := raw
	for {
		start := strings.Index(rest, blockMarker)
		if start < 0 {
			break
		}
		rest = rest[start+len(blockMarker):]
		end := strings.Index(rest, blockMarker)
		if end < 0 {
			chunks = append(chunks, rest)
			break
		}
		chunks = append(chunks, rest[:end])
		rest = rest[end:]
	}
	return chunks
}

// parseBlock extracts recognized fields from one chunk. A chunk with a
// missing or unrecognized ACTION, or a missing DEPARTMENT, yields no
// intent rather than a partially executable one.
func parseBlock(chunk string) (Intent, bool) {
	fields := scanFields(chunk)

	action, ok := ParseAction(fields["ACTION"])
	if !ok {
		return Intent{}, false
	}
	department := strings.TrimSpace(fields["DEPARTMENT"])
	if department == "" {
		return Intent{}, false
	}

	it := Intent{
		Action:       action,
		Department:   department,
		ExcelPath:    normOptional(fields["EXCEL_PATH"]),
		Sheet:        normOptional(fields["SHEET"]),
		Condition:    normOptional(fields["CONDITION"]),
		Notes:        normOptional(fields["NOTES"]),
		EmployeeName: normOptional(fields["EMPLOYEE_NAME"]),
		Email:        normOptional(fields["EMAIL"]),
		Subject:      normOptional(fields["SUBJECT"]),
		Body:         normOptional(fields["BODY"]),
	}
	if raw := normOptional(fields["VALUES"]); raw != "" {
		it.Values = DecodeValues(raw)
	}
	return it, true
}

// scanFields returns the first occurrence of each recognized field in
// the chunk. Matching is case-insensitive and values run up to the
// next recognized label.
func scanFields(chunk string) map[string]string {
	locs := fieldPattern.FindAllStringSubmatchIndex(chunk, -1)
	fields := make(map[string]string, len(fieldNames))
	for i, loc := range locs {
		name := strings.ToUpper(chunk[loc[2]:loc[3]])
		end := len(chunk)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := strings.TrimSpace(chunk[loc[1]:end])
		if _, seen := fields[name]; !seen {
			fields[name] = value
		}
	}
	return fields
}

// normOptional treats the usual LLM placeholders for "nothing" as an
// absent value.
func normOptional(v string) string {
	trimmed := strings.TrimSpace(v)
	switch strings.ToLower(trimmed) {
	case "", "none", "null", "empty", "n/a":
		return ""
	}
	return trimmed
}
