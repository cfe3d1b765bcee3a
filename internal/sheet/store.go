// Package sheet implements the spreadsheet row store backing the
// per-department databases. Row 1 of a sheet is always the header;
// mutations load the whole workbook, modify it in memory and rewrite
// the file atomically.
package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Error kinds surfaced to the intent executor.
var (
	ErrFileNotFound      = errors.New("spreadsheet file not found")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrCorruptFile       = errors.New("spreadsheet file is corrupt or empty")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrBadValues         = errors.New("invalid insert values")
)

// minWorkbookSize guards against trivially-small files that cannot be a
// valid workbook archive.
const minWorkbookSize = 512

var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// Store reads and mutates workbook files. Mutating access is serialized
// per file path; whole-file rewrite-on-save makes concurrent writers
// destructive otherwise.
type Store struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a row store.
func NewStore() *Store {
	return &Store{locks: make(map[string]*sync.Mutex)}
}

func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[path]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[path] = l
	return l
}

// ensurePath validates the workbook path before opening.
func ensurePath(path string) (string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, resolved)
	}
	ext := strings.ToLower(filepath.Ext(resolved))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %s (only .xlsx/.xlsm/.xltx/.xltm are supported)", ErrUnsupportedFormat, ext)
	}
	if info.Size() < minWorkbookSize {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrCorruptFile, resolved, info.Size())
	}
	slog.Debug("Opening workbook", "path", resolved, "size_bytes", info.Size())
	return resolved, nil
}

// resolveSheet returns the requested sheet name, or the first sheet in
// file order when name is empty.
func resolveSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// Read returns one mapping per data row, keyed by header cell values.
// An optional condition filters rows by string-coerced equality; a
// condition naming an unknown column applies no filtering.
func (s *Store) Read(path, sheetName, condition string) ([]map[string]any, error) {
	resolved, err := ensurePath(path)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []map[string]any{}, nil
	}

	headers := rows[0]
	headerIndex := indexHeaders(headers)
	cond, hasCond := ParseCondition(condition)
	_, condColumnKnown := headerIndex[cond.Column]

	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]any, len(headers))
		for i, h := range headers {
			record[h] = cellAt(row, i)
		}
		if hasCond && condColumnKnown && cellAt(row, headerIndex[cond.Column]) != cond.Value {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Insert appends one normalized row after the last populated row.
// Values may be a mapping (projected by header names), a sequence
// (padded or truncated to header length), or a raw string (decoded as
// JSON, else split on commas).
func (s *Store) Insert(path, sheetName string, values any) error {
	resolved, err := ensurePath(path)
	if err != nil {
		return err
	}
	lock := s.pathLock(resolved)
	lock.Lock()
	defer lock.Unlock()

	f, err := excelize.OpenFile(resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, sheetName)
	if err != nil {
		return err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}
	row, err := normalizeInsertValues(headers, values)
	if err != nil {
		return err
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("target cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return saveAtomic(f, resolved)
}

// Update sets the given column values on every row matching the
// condition and returns the matched-row count. A missing or malformed
// condition, or a condition column absent from the header, is a no-op
// returning 0.
func (s *Store) Update(path, sheetName, condition string, values map[string]any) (int, error) {
	resolved, err := ensurePath(path)
	if err != nil {
		return 0, err
	}
	lock := s.pathLock(resolved)
	lock.Lock()
	defer lock.Unlock()

	f, err := excelize.OpenFile(resolved)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, sheetName)
	if err != nil {
		return 0, err
	}
	cond, ok := ParseCondition(condition)
	if !ok {
		return 0, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	headers := rows[0]
	headerIndex := indexHeaders(headers)
	condIdx, ok := headerIndex[cond.Column]
	if !ok {
		return 0, nil
	}

	matched := 0
	for i, row := range rows[1:] {
		if cellAt(row, condIdx) != cond.Value {
			continue
		}
		rowNum := i + 2
		for col, val := range values {
			idx, ok := headerIndex[col]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(idx+1, rowNum)
			if err != nil {
				return 0, fmt.Errorf("target cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return 0, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		matched++
	}
	if matched == 0 {
		return 0, nil
	}
	if err := saveAtomic(f, resolved); err != nil {
		return 0, err
	}
	return matched, nil
}

// Delete removes every row matching the condition and returns the
// removed-row count. Rows are removed bottom-up so earlier indices stay
// valid while later matches are processed.
func (s *Store) Delete(path, sheetName, condition string) (int, error) {
	resolved, err := ensurePath(path)
	if err != nil {
		return 0, err
	}
	lock := s.pathLock(resolved)
	lock.Lock()
	defer lock.Unlock()

	f, err := excelize.OpenFile(resolved)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, sheetName)
	if err != nil {
		return 0, err
	}
	cond, ok := ParseCondition(condition)
	if !ok {
		return 0, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	headerIndex := indexHeaders(rows[0])
	condIdx, ok := headerIndex[cond.Column]
	if !ok {
		return 0, nil
	}

	var toDelete []int
	for i, row := range rows[1:] {
		if cellAt(row, condIdx) == cond.Value {
			toDelete = append(toDelete, i+2)
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	for i := len(toDelete) - 1; i >= 0; i-- {
		if err := f.RemoveRow(sheet, toDelete[i]); err != nil {
			return 0, fmt.Errorf("remove row %d: %w", toDelete[i], err)
		}
	}
	if err := saveAtomic(f, resolved); err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

// normalizeInsertValues aligns arbitrary insert input with the header.
// Priority: mapping -> header projection, sequence -> pad/truncate,
// string -> JSON decode then renormalize, else comma split.
func normalizeInsertValues(headers []string, values any) ([]any, error) {
	if len(headers) == 0 {
		// No header row: only a positionally-ordered sequence is
		// meaningful, taken as-is.
		if seq, ok := asSequence(values); ok {
			return seq, nil
		}
		return nil, fmt.Errorf("%w: sheet has no header row; VALUES must be a list in column order", ErrBadValues)
	}

	if m, ok := asMapping(values); ok {
		row := make([]any, len(headers))
		for i, h := range headers {
			if v, ok := m[h]; ok {
				row[i] = v
			}
		}
		return row, nil
	}

	if seq, ok := asSequence(values); ok {
		row := make([]any, len(headers))
		copy(row, seq)
		return row, nil
	}

	if text, ok := values.(string); ok {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			var parsed any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return normalizeInsertValues(headers, parsed)
			}
			parts := strings.Split(trimmed, ",")
			seq := make([]any, len(parts))
			for i, p := range parts {
				seq[i] = strings.TrimSpace(p)
			}
			return normalizeInsertValues(headers, seq)
		}
	}

	return nil, fmt.Errorf("%w: VALUES must be a list, mapping, JSON string, or comma-separated string", ErrBadValues)
}

func asMapping(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSequence(v any) ([]any, bool) {
	switch seq := v.(type) {
	case []any:
		return seq, true
	case []string:
		out := make([]any, len(seq))
		for i, s := range seq {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func indexHeaders(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, exists := idx[h]; !exists {
			idx[h] = i
		}
	}
	return idx
}

// cellAt tolerates short rows: trailing empty cells are not stored.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// saveAtomic writes the workbook to a temporary sibling and renames it
// over the original so a crash mid-write cannot truncate the file.
// The temp file is streamed with Write rather than SaveAs, which
// insists on a workbook extension the temp name does not carry.
func saveAtomic(f *excelize.File, path string) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}
