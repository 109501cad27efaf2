package converter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/utilrep/internal/exporter"
	"github.com/nconklindev/utilrep/internal/types"

	"github.com/xuri/excelize/v2"
)

const RowDetectionLimit = 10

const utf8BOM = "\uFEFF"

// RunOptions describes one end-to-end conversion.
type RunOptions struct {
	InputFile string
	// OutputFile is optional; when empty a unique name is generated in OutputDir.
	OutputFile   string
	OutputDir    string
	Format       string
	TemplatePath string
}

// Run reads the input file, transforms it into a utilization report and
// writes the report as CSV or as a copy of the XLSX template.
func Run(opts RunOptions, progressChan chan<- float64) (*types.RunResult, error) {
	format := strings.ToLower(opts.Format)
	if format != types.FormatCSV && format != types.FormatXLSX {
		return nil, fmt.Errorf("unsupported output format: %q", opts.Format)
	}

	// read, the pipeline stages, write
	totalSteps := float64(len(stages) + 2)

	data, err := ReadFileData(opts.InputFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(opts.InputFile), err)
	}
	sendProgress(progressChan, 1/totalSteps)

	report, err := transform(data, func(done int) {
		sendProgress(progressChan, float64(done+1)/totalSteps)
	})
	if err != nil {
		return nil, err
	}

	outputFile := opts.OutputFile
	if outputFile == "" {
		outputFile = exporter.SessionPath(opts.OutputDir, "."+format)
	}

	switch format {
	case types.FormatCSV:
		err = writeCSVFile(outputFile, report)
	case types.FormatXLSX:
		_, err = exporter.Export(report, opts.TemplatePath, outputFile, HourColumns...)
		if err != nil && !errors.Is(err, exporter.ErrTemplateNotFound) {
			_ = os.Remove(outputFile)
		}
	}
	if err != nil {
		return nil, err
	}
	sendProgress(progressChan, 1)

	return &types.RunResult{
		InputFile:     opts.InputFile,
		OutputFile:    outputFile,
		Format:        format,
		Columns:       report.Headers,
		RowsProcessed: len(report.Rows),
	}, nil
}

// WriteCSV writes rs, header row first.
func WriteCSV(w io.Writer, rs *types.RecordSet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(rs.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(rs.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// writeCSVFile writes rs through a temporary file in the destination
// directory, so a failed run never leaves a partial report at path.
func writeCSVFile(path string, rs *types.RecordSet) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &exporter.WriteError{Path: path, Op: "create directory", Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".utilrep-*.csv")
	if err != nil {
		return &exporter.WriteError{Path: path, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(op string, err error) error {
		_ = os.Remove(tmpPath)
		return &exporter.WriteError{Path: path, Op: op, Err: err}
	}

	if err := WriteCSV(tmp, rs); err != nil {
		tmp.Close()
		return fail("write", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fail("rename", err)
	}
	return nil
}

// ReadFileData reads a whole CSV or XLSX export into a record set.
func ReadFileData(filePath string) (*types.RecordSet, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".csv":
		return readCSVData(filePath)
	case ".xlsx":
		return readXLSXData(filePath)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func readCSVData(filePath string) (*types.RecordSet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV decodes a CSV stream whose first record is the header. A leading
// byte order mark is dropped and ragged rows are padded to the header width.
func ReadCSV(r io.Reader) (*types.RecordSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}

	return &types.RecordSet{
		Headers: headers,
		Rows:    padRows(records[1:], len(headers)),
	}, nil
}

func readXLSXData(filePath string) (*types.RecordSet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)

	// Raw values keep date serials and durations free of display formats.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	// Find the header row (first row with multiple non-empty cells)
	headerRowIdx := findHeaderRow(rows)
	if headerRowIdx == -1 {
		return nil, fmt.Errorf("could not find header row")
	}

	data := &types.RecordSet{
		Headers:   rows[headerRowIdx],
		Rows:      padRows(rows[headerRowIdx+1:], len(rows[headerRowIdx])),
		HeaderRow: headerRowIdx,
	}
	if err := convertDateSerials(f, sheetName, data); err != nil {
		return nil, err
	}
	return data, nil
}

// convertDateSerials rewrites numeric cells in the source date columns from
// Excel serial days to D/M/YYYY. Text cells are left for the date normalizer.
func convertDateSerials(f *excelize.File, sheetName string, data *types.RecordSet) error {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	for _, name := range sourceDateColumns {
		col := data.Column(name)
		if col == -1 {
			continue
		}
		for r, row := range data.Rows {
			raw := strings.TrimSpace(row[col])
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, data.HeaderRow+r+2)
			if err != nil {
				return err
			}
			cellType, err := f.GetCellType(sheetName, cell)
			if err != nil {
				return err
			}
			switch cellType {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
				continue
			}
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				return &DateParseError{Row: r + 1, Column: name, Value: raw}
			}
			row[col] = FormatDate(t)
		}
	}
	return nil
}

// padRows gives every row exactly width cells.
func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) > width {
			row = row[:width]
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// findHeaderRow locates the first row that appears to be a header
// by finding the row with the most non-empty text cells
func findHeaderRow(rows [][]string) int {
	maxNonEmpty := 0
	headerIdx := -1

	// Look at first 20 rows max
	searchLimit := len(rows)
	if searchLimit > RowDetectionLimit*2 {
		searchLimit = RowDetectionLimit * 2
	}

	for i := 0; i < searchLimit; i++ {
		nonEmptyCount := 0
		hasText := false

		for _, cell := range rows[i] {
			trimmed := strings.TrimSpace(cell)
			if trimmed != "" {
				nonEmptyCount++
				if containsLetters(trimmed) {
					hasText = true
				}
			}
		}

		// Header should have multiple columns AND contain text
		if nonEmptyCount >= 2 && hasText && nonEmptyCount > maxNonEmpty {
			maxNonEmpty = nonEmptyCount
			headerIdx = i
		}
	}

	return headerIdx
}

// containsLetters checks if a string contains any alphabetic characters
func containsLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
