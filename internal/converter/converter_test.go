package converter

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nconklindev/utilrep/internal/exporter"
	"github.com/nconklindev/utilrep/internal/types"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Issue key",
	"Parent summary",
	"Summary",
	"Assignee",
	"Custom field (Start date)",
	"Due date",
	"Σ Original Estimate",
	"Time Spent",
	"Status",
	"Sprint",
}

func exportRow(parent, summary, assignee, start, due, estimate, spent, status string) []string {
	return []string{"KEY-1", parent, summary, assignee, start, due, estimate, spent, status, "Sprint 4"}
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestTransform_Example(t *testing.T) {
	input := &types.RecordSet{
		Headers: exportHeaders,
		Rows: [][]string{
			exportRow("Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"),
		},
	}

	got, err := Transform(input, nil)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if !reflect.DeepEqual(got.Headers, ReportColumns) {
		t.Errorf("Headers = %v; want %v", got.Headers, ReportColumns)
	}

	want := []string{"Backend", "Fix bug", "Alice", "1/2/2024", "5/2/2024", "2.0", "1.0", "Done", "5/2/2024", ""}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Errorf("Row = %q; want %q", got.Rows[0], want)
	}
}

func TestTransform_PreservesRowsAndShape(t *testing.T) {
	input := &types.RecordSet{
		Headers: exportHeaders,
		Rows: [][]string{
			exportRow("Backend", "Task A", "Alice", "2024-03-01", "15/03/2024", "3600", "1800", "Done"),
			exportRow("Frontend", "Task B", "Bob", "", "", "", "", "To Do"),
			exportRow("Ops", "Task C", "Cara", "9.4.2024", "30/Apr/24 5:00 PM", "100", "0", "In Progress"),
		},
	}

	got, err := Transform(input, nil)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if len(got.Rows) != len(input.Rows) {
		t.Fatalf("Expected %d rows, got %d", len(input.Rows), len(got.Rows))
	}

	due := got.Column(ColDueDate)
	end := got.Column(ColEndDate)
	risk := got.Column(ColRisk)
	for i, row := range got.Rows {
		if len(row) != len(ReportColumns) {
			t.Errorf("Row %d: expected %d cells, got %d", i, len(ReportColumns), len(row))
		}
		if row[end] != row[due] {
			t.Errorf("Row %d: End Date %q != Due Date %q", i, row[end], row[due])
		}
		if row[risk] != "" {
			t.Errorf("Row %d: expected empty risk column, got %q", i, row[risk])
		}
	}

	if got.Rows[0][1] != "Task A" || got.Rows[1][1] != "Task B" || got.Rows[2][1] != "Task C" {
		t.Errorf("Row order not preserved: %v", got.Rows)
	}
	if got.Rows[2][got.Column(ColEndDate)] != "30/4/2024" {
		t.Errorf("Expected 30/4/2024, got %s", got.Rows[2][got.Column(ColEndDate)])
	}
	if got.Rows[2][got.Column(ColPlanned)] != "0.03" {
		t.Errorf("Expected 0.03, got %s", got.Rows[2][got.Column(ColPlanned)])
	}
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	input := &types.RecordSet{
		Headers: exportHeaders,
		Rows: [][]string{
			exportRow("Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"),
		},
	}
	before := input.Clone()

	if _, err := Transform(input, nil); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !reflect.DeepEqual(input, before) {
		t.Errorf("Input was modified: %v", input)
	}
}

func TestTransform_Progress(t *testing.T) {
	input := &types.RecordSet{Headers: exportHeaders}
	progressChan := make(chan float64, 10)

	if _, err := Transform(input, progressChan); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	close(progressChan)

	var got []float64
	for p := range progressChan {
		got = append(got, p)
	}
	want := []float64{0.25, 0.5, 0.75, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Progress = %v; want %v", got, want)
	}
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		target error
	}{
		{"Bad start date", exportRow("A", "B", "C", "not a date", "", "", "", "Done"), ErrInvalidDate},
		{"Bad due date", exportRow("A", "B", "C", "", "31/02/2024", "", "", "Done"), ErrInvalidDate},
		{"Bad estimate", exportRow("A", "B", "C", "", "", "2h", "", "Done"), ErrInvalidDuration},
		{"Bad time spent", exportRow("A", "B", "C", "", "", "", "abc", "Done"), ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := &types.RecordSet{Headers: exportHeaders, Rows: [][]string{tt.row}}
			got, err := Transform(input, nil)
			if !errors.Is(err, tt.target) {
				t.Fatalf("Transform() error = %v; want %v", err, tt.target)
			}
			if got != nil {
				t.Errorf("Expected no partial output, got %v", got)
			}
		})
	}
}

func TestSelectColumns(t *testing.T) {
	input := &types.RecordSet{
		Headers: exportHeaders,
		Rows: [][]string{
			exportRow("Backend", "Fix bug", "Alice", "1/2/2024", "5/2/2024", "7200", "3600", "Done"),
		},
	}

	got, err := SelectColumns(input)
	if err != nil {
		t.Fatalf("SelectColumns failed: %v", err)
	}
	if !reflect.DeepEqual(got.Headers, RequiredColumns) {
		t.Errorf("Headers = %v; want %v", got.Headers, RequiredColumns)
	}
	want := []string{"Backend", "Fix bug", "Alice", "1/2/2024", "5/2/2024", "7200", "3600", "Done"}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Errorf("Row = %v; want %v", got.Rows[0], want)
	}
}

func TestSelectColumns_Missing(t *testing.T) {
	headers := []string{"Parent summary", "Summary", "Assignee", "Custom field (Start date)", "Due date", "Σ Original Estimate", "Time Spent"}
	input := &types.RecordSet{
		Headers: headers,
		Rows:    [][]string{{"A", "B", "C", "D", "E", "F", "G"}},
	}

	_, err := SelectColumns(input)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected *SchemaError, got %T", err)
	}
	if !reflect.DeepEqual(schemaErr.Missing, []string{"Status"}) {
		t.Errorf("Missing = %v; want [Status]", schemaErr.Missing)
	}
}

func TestSelectColumns_CaseSensitive(t *testing.T) {
	headers := append([]string(nil), RequiredColumns...)
	headers[7] = "status"
	_, err := SelectColumns(&types.RecordSet{Headers: headers})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn for lower-case header, got %v", err)
	}
}

func TestSelectColumns_DuplicateHeaderFirstWins(t *testing.T) {
	headers := append(append([]string(nil), RequiredColumns...), "Status")
	input := &types.RecordSet{
		Headers: headers,
		Rows:    [][]string{{"A", "B", "C", "", "", "", "", "Done", "Ignored"}},
	}

	got, err := SelectColumns(input)
	if err != nil {
		t.Fatalf("SelectColumns failed: %v", err)
	}
	if got.Rows[0][7] != "Done" {
		t.Errorf("Expected first Status column, got %q", got.Rows[0][7])
	}
}

func TestRenameColumns(t *testing.T) {
	input := &types.RecordSet{
		Headers: RequiredColumns,
		Rows:    [][]string{{"Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"}},
	}

	got := RenameColumns(input)

	if !reflect.DeepEqual(got.Headers, ReportColumns) {
		t.Errorf("Headers = %v; want %v", got.Headers, ReportColumns)
	}
	want := []string{"Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done", "05-02-2024", ""}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Errorf("Row = %v; want %v", got.Rows[0], want)
	}
}

func TestReadCSV(t *testing.T) {
	input := "\uFEFFParent summary,Summary,Status\nBackend,\"Fix, bug\",Done\nFrontend\n"

	got, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if got.Headers[0] != "Parent summary" {
		t.Errorf("Expected BOM to be stripped, got %q", got.Headers[0])
	}
	if len(got.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got.Rows))
	}
	if got.Rows[0][1] != "Fix, bug" {
		t.Errorf("Expected quoted cell, got %q", got.Rows[0][1])
	}
	if len(got.Rows[1]) != 3 || got.Rows[1][2] != "" {
		t.Errorf("Expected short row padded to 3 cells, got %q", got.Rows[1])
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestReadFileData_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Jira export")
	f.SetSheetRow(sheet, "A3", &[]interface{}{"Parent summary", "Summary", "Status"})
	f.SetSheetRow(sheet, "A4", &[]interface{}{"Backend", "Fix bug"})
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := ReadFileData(path)
	if err != nil {
		t.Fatalf("ReadFileData failed: %v", err)
	}
	if got.HeaderRow != 2 {
		t.Errorf("Expected header row 2, got %d", got.HeaderRow)
	}
	want := []string{"Backend", "Fix bug", ""}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Errorf("Row = %q; want %q", got.Rows[0], want)
	}
}

func TestReadFileData_XLSXDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(RequiredColumns))
	for i, h := range RequiredColumns {
		header[i] = h
	}
	f.SetSheetRow(sheet, "A1", &header)
	f.SetSheetRow(sheet, "A2", &[]interface{}{"Backend", "Fix bug", "Alice", 45323, 45327, 7200, 3600, "Done"})
	f.SetSheetRow(sheet, "A3", &[]interface{}{"Backend", "Write docs", "Bob", "06/02/2024", nil, 5400, nil, "To Do"})

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle(sheet, "D2", "E2", dateStyle); err != nil {
		t.Fatal(err)
	}
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle(sheet, "F2", "G3", thousands); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := ReadFileData(path)
	if err != nil {
		t.Fatalf("ReadFileData failed: %v", err)
	}
	report, err := Transform(data, nil)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	want := [][]string{
		{"Backend", "Fix bug", "Alice", "1/2/2024", "5/2/2024", "2.0", "1.0", "Done", "5/2/2024", ""},
		{"Backend", "Write docs", "Bob", "6/2/2024", "", "1.5", "", "To Do", "", ""},
	}
	if !reflect.DeepEqual(report.Rows, want) {
		t.Errorf("Rows = %q; want %q", report.Rows, want)
	}
}

func TestReadFileData_Unsupported(t *testing.T) {
	if _, err := ReadFileData("report.txt"); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

func TestRun_CSV(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "out", "report.csv")

	writeCSV(t, inputFile, [][]string{
		exportHeaders,
		exportRow("Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"),
		exportRow("Backend", "Write docs", "Bob", "2024-02-06", "2024-02-09", "5400", "", "In Progress"),
	})

	result, err := Run(RunOptions{InputFile: inputFile, OutputFile: outputFile, Format: "CSV"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OutputFile != outputFile || result.RowsProcessed != 2 || result.Format != types.FormatCSV {
		t.Errorf("Unexpected result: %+v", result)
	}

	f, err := os.Open(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], ReportColumns) {
		t.Errorf("Header = %v; want %v", records[0], ReportColumns)
	}
	want := []string{"Backend", "Write docs", "Bob", "6/2/2024", "9/2/2024", "1.5", "", "In Progress", "9/2/2024", ""}
	if !reflect.DeepEqual(records[2], want) {
		t.Errorf("Row = %q; want %q", records[2], want)
	}
}

func TestRun_XLSX(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	templateFile := filepath.Join(tmpDir, "template.xlsx")
	outputDir := filepath.Join(tmpDir, "artifacts")

	writeCSV(t, inputFile, [][]string{
		exportHeaders,
		exportRow("Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"),
	})
	if err := exporter.NewTemplate(templateFile, ReportColumns); err != nil {
		t.Fatal(err)
	}

	progressChan := make(chan float64, 10)
	result, err := Run(RunOptions{
		InputFile:    inputFile,
		OutputDir:    outputDir,
		Format:       types.FormatXLSX,
		TemplatePath: templateFile,
	}, progressChan)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if filepath.Dir(result.OutputFile) != outputDir || filepath.Ext(result.OutputFile) != ".xlsx" {
		t.Errorf("Unexpected output path %s", result.OutputFile)
	}

	close(progressChan)
	var last float64
	for p := range progressChan {
		last = p
	}
	if last != 1 {
		t.Errorf("Expected final progress 1, got %v", last)
	}

	f, err := excelize.OpenFile(result.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	header, _ := f.GetCellValue(sheet, "A1")
	task, _ := f.GetCellValue(sheet, "B2")
	planned, _ := f.GetCellValue(sheet, "F2")
	endDate, _ := f.GetCellValue(sheet, "I2")
	if header != ColModule || task != "Fix bug" || planned != "2" || endDate != "5/2/2024" {
		t.Errorf("Unexpected cells: A1=%q B2=%q F2=%q I2=%q", header, task, planned, endDate)
	}
}

func TestRun_MissingColumnWritesNothing(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "report.csv")

	writeCSV(t, inputFile, [][]string{
		{"Parent summary", "Summary"},
		{"Backend", "Fix bug"},
	})

	_, err := Run(RunOptions{InputFile: inputFile, OutputFile: outputFile, Format: types.FormatCSV}, nil)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}
	if _, statErr := os.Stat(outputFile); !os.IsNotExist(statErr) {
		t.Errorf("Expected no output file, stat error = %v", statErr)
	}
}

func TestRun_CSVFailureLeavesNoPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	writeCSV(t, inputFile, [][]string{
		exportHeaders,
		exportRow("Backend", "Fix bug", "Alice", "01-02-2024", "05-02-2024", "7200", "3600", "Done"),
	})

	// A non-empty directory at the destination cannot be replaced by a file.
	outDir := filepath.Join(tmpDir, "out")
	outputFile := filepath.Join(outDir, "report.csv")
	if err := os.MkdirAll(filepath.Join(outputFile, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Run(RunOptions{InputFile: inputFile, OutputFile: outputFile, Format: types.FormatCSV}, nil)

	var writeErr *exporter.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *WriteError, got %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.csv" || !entries[0].IsDir() {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only the original directory to remain, got %v", names)
	}
}

func TestRun_CSVReplacesExistingReport(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "report.csv")
	writeCSV(t, inputFile, [][]string{exportHeaders})
	if err := os.WriteFile(outputFile, []byte("stale,report\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(RunOptions{InputFile: inputFile, OutputFile: outputFile, Format: types.FormatCSV}, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != strings.Join(ReportColumns, ",") {
		t.Errorf("Expected only the report header, got %q", data)
	}
	entries, _ := os.ReadDir(tmpDir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".utilrep-") {
			t.Errorf("Temporary file %s left behind", e.Name())
		}
	}
}

func TestRun_UnsupportedFormat(t *testing.T) {
	if _, err := Run(RunOptions{InputFile: "input.csv", Format: "pdf"}, nil); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestRun_TemplateNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	writeCSV(t, inputFile, [][]string{exportHeaders})

	_, err := Run(RunOptions{
		InputFile:    inputFile,
		OutputDir:    tmpDir,
		Format:       types.FormatXLSX,
		TemplatePath: filepath.Join(tmpDir, "missing.xlsx"),
	}, nil)
	if !errors.Is(err, exporter.ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}
}
