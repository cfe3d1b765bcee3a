package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook builds a throwaway workbook whose first row is the
// header.
func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func employeesWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"id", "Name", "Email", "status"},
		{"1", "Alice", "alice@example.com", "Active"},
		{"2", "Bob", "bob@example.com", "Active"},
		{"3", "Carol", "carol@example.com", "On Leave"},
	})
	return path
}

func TestMutationPersistsAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"id", "Name", "status"},
		{"1", "Alice", "Active"},
	})
	s := NewStore()

	if err := s.Insert(path, "", map[string]any{"id": "2", "Name": "Bob", "status": "Active"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Update(path, "Sheet1", "id=1", map[string]any{"status": "On Leave"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.Delete(path, "Sheet1", "id=2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, err := s.Read(path, "", "")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0]["status"] != "On Leave" {
		t.Fatalf("mutations not persisted: %+v", rows)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "hr.xlsx" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the workbook to remain, got %v", names)
	}
}

func TestReadAllRows(t *testing.T) {
	s := NewStore()
	rows, err := s.Read(employeesWorkbook(t), "", "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["Name"] != "Alice" || rows[2]["status"] != "On Leave" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReadWithCondition(t *testing.T) {
	s := NewStore()
	rows, err := s.Read(employeesWorkbook(t), "Sheet1", "status=Active")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 active rows, got %d", len(rows))
	}
}

func TestReadQuotedConditionValue(t *testing.T) {
	s := NewStore()
	rows, err := s.Read(employeesWorkbook(t), "", `Name="Bob"`)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0]["Email"] != "bob@example.com" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReadUnknownConditionColumnReturnsAllRows(t *testing.T) {
	s := NewStore()
	rows, err := s.Read(employeesWorkbook(t), "", "salary=100")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("unknown condition column must not filter, got %d rows", len(rows))
	}
}

func TestInsertMappingProjectsHeader(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	err := s.Insert(path, "", map[string]any{
		"Name": "Dave", "Email": "dave@example.com", "shoe_size": "44",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := s.Read(path, "", "Name=Dave")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected inserted row, got %d", len(rows))
	}
	if rows[0]["id"] != "" || rows[0]["Email"] != "dave@example.com" {
		t.Fatalf("mapping projection wrong: %+v", rows[0])
	}
}

func TestInsertOversizedSequenceTruncates(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	err := s.Insert(path, "", []any{"4", "Dave", "dave@example.com", "Active", "extra", "columns"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := s.Read(path, "", "id=4")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 4 {
		t.Fatalf("expected one 4-column row, got %+v", rows)
	}
}

func TestInsertCommaStringSplits(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	if err := s.Insert(path, "", "5, Erin, erin@example.com, Active"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := s.Read(path, "", "id=5")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0]["Name"] != "Erin" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInsertJSONStringDecodesFirst(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	if err := s.Insert(path, "", `{"id": "6", "Name": "Frank"}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := s.Read(path, "", "id=6")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0]["Name"] != "Frank" || rows[0]["Email"] != "" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInsertBadValuesRejected(t *testing.T) {
	s := NewStore()
	if err := s.Insert(employeesWorkbook(t), "", 42); !errors.Is(err, ErrBadValues) {
		t.Fatalf("expected ErrBadValues, got %v", err)
	}
}

func TestUpdateMatchingRowsPersists(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	count, err := s.Update(path, "Sheet1", "status=Active", map[string]any{"status": "Resigned"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 matched rows, got %d", count)
	}
	rows, err := s.Read(path, "", "status=Resigned")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("update not persisted, got %d resigned rows", len(rows))
	}
}

func TestUpdateUnknownConditionColumnLeavesFileUntouched(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	count, err := s.Update(path, "", "salary=100", map[string]any{"status": "Resigned"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 matched rows, got %d", count)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-read fixture: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("a zero-match update must not rewrite the file")
	}
}

func TestUpdateNoMatchIsZero(t *testing.T) {
	s := NewStore()
	count, err := s.Update(employeesWorkbook(t), "", "Name=Zed", map[string]any{"status": "x"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestDeleteRemovesAllMatches(t *testing.T) {
	s := NewStore()
	path := employeesWorkbook(t)
	count, err := s.Delete(path, "", "status=Active")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", count)
	}
	rows, err := s.Read(path, "", "")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0]["Name"] != "Carol" {
		t.Fatalf("unexpected remaining rows %+v", rows)
	}
}

func TestDeleteUnknownConditionColumnIsZero(t *testing.T) {
	s := NewStore()
	count, err := s.Delete(employeesWorkbook(t), "", "salary=100")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestMissingFileIsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Read(filepath.Join(t.TempDir(), "nope.xlsx"), "", "")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestUnsupportedExtensionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.csv")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := NewStore()
	if _, err := s.Read(path, "", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestTinyFileIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	if err := os.WriteFile(path, []byte("PK"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := NewStore()
	if _, err := s.Read(path, "", ""); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestNamedSheetMustExist(t *testing.T) {
	s := NewStore()
	if _, err := s.Read(employeesWorkbook(t), "Payroll", ""); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestParseCondition(t *testing.T) {
	cases := []struct {
		raw    string
		ok     bool
		column string
		value  string
	}{
		{"status=Active", true, "status", "Active"},
		{` Name = "Bob" `, true, "Name", "Bob"},
		{"Name='O'Brien'", true, "Name", "O'Brien"},
		{"id=", true, "id", ""},
		{"no equals here", false, "", ""},
		{"", false, "", ""},
	}
	for _, c := range cases {
		cond, ok := ParseCondition(c.raw)
		if ok != c.ok {
			t.Fatalf("%q: ok=%v, want %v", c.raw, ok, c.ok)
		}
		if ok && (cond.Column != c.column || cond.Value != c.value) {
			t.Fatalf("%q: got %+v", c.raw, cond)
		}
	}
}

func TestLookupEmailByNameVariantHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Full_Name", "Email_Address", "dept"},
		{"Alice Smith", "alice@example.com", "HR"},
		{"Bob Jones", "bob@example.com", "Sales"},
	})
	s := NewStore()
	email, ok, err := s.LookupEmailByName(path, "", "alice smith")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || email != "alice@example.com" {
		t.Fatalf("got (%q, %v)", email, ok)
	}
}

func TestLookupEmailByNamePaddedHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{" employee_name ", " E-MAIL "},
		{"Carol", "carol@example.com"},
	})
	s := NewStore()
	email, ok, err := s.LookupEmailByName(path, "", "Carol")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || email != "carol@example.com" {
		t.Fatalf("got (%q, %v)", email, ok)
	}
}

func TestLookupEmailHeaderPickIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Full_Name", "Name", "Email_Address", "Email"},
		{"Alice Smith", "Alice", "full@example.com", "short@example.com"},
	})
	s := NewStore()
	for i := 0; i < 20; i++ {
		email, ok, err := s.LookupEmailByName(path, "", "Alice")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if !ok || email != "short@example.com" {
			t.Fatalf("run %d: candidate priority must pick Name/Email, got (%q, %v)", i, email, ok)
		}
	}
}

func TestLookupEmailAmbiguityUsesFirstMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Name", "Email"},
		{"Alice", "alice.one@example.com"},
		{"Alice", "alice.two@example.com"},
	})
	s := NewStore()
	email, ok, err := s.LookupEmailByName(path, "", "Alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || email != "alice.one@example.com" {
		t.Fatalf("got (%q, %v)", email, ok)
	}
}

func TestLookupEmailUnknownName(t *testing.T) {
	s := NewStore()
	_, ok, err := s.LookupEmailByName(employeesWorkbook(t), "", "Nobody")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Fatal("unknown name must not resolve")
	}
}

func TestLookupEmailMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hr.xlsx")
	writeWorkbook(t, path, [][]any{
		{"id", "dept"},
		{"1", "HR"},
	})
	s := NewStore()
	if _, _, err := s.LookupEmailByName(path, "", "Alice"); err == nil {
		t.Fatal("expected an error when no name/email columns exist")
	}
}
