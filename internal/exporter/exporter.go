package exporter

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nconklindev/utilrep/internal/types"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ErrTemplateNotFound indicates the template workbook does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// WriteError reports a destination that could not be written.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Export copies the template workbook to destPath, clears its data rows and
// writes rs starting at A2. Row 1 is left to the template's own headers.
// Cells in numericColumns are stored as numbers; blank cells stay empty.
func Export(rs *types.RecordSet, templatePath, destPath string, numericColumns ...string) (string, error) {
	if err := copyFile(templatePath, destPath); err != nil {
		return "", err
	}

	f, err := excelize.OpenFile(destPath)
	if err != nil {
		return "", fmt.Errorf("open template copy: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	if err := clearDataRows(f, sheetName); err != nil {
		return "", err
	}

	numeric := make(map[int]bool)
	for _, name := range numericColumns {
		if idx := rs.Column(name); idx != -1 {
			numeric[idx] = true
		}
	}

	for r, row := range rs.Rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			switch {
			case v == "":
				values[c] = nil
			case numeric[c]:
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					values[c] = n
				} else {
					values[c] = v
				}
			default:
				values[c] = v
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return "", fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.Save(); err != nil {
		return "", &WriteError{Path: destPath, Op: "save", Err: err}
	}
	return destPath, nil
}

// clearDataRows empties every cell value from row 2 to the last used row.
// Cell styles are kept.
func clearDataRows(f *excelize.File, sheetName string) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}
	for r := 1; r < len(rows); r++ {
		for c := range rows[r] {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellDefault(sheetName, cell, ""); err != nil {
				return fmt.Errorf("clear %s: %w", cell, err)
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrTemplateNotFound, err)
		}
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &WriteError{Path: dst, Op: "create directory", Err: err}
	}
	out, err := os.Create(dst)
	if err != nil {
		return &WriteError{Path: dst, Op: "create", Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &WriteError{Path: dst, Op: "copy template", Err: err}
	}
	if err := out.Close(); err != nil {
		return &WriteError{Path: dst, Op: "close", Err: err}
	}
	return nil
}

// SessionPath returns a fresh output path in dir so that concurrent runs
// never write to the same file.
func SessionPath(dir, ext string) string {
	name := fmt.Sprintf("utilization_report_%s_%s%s",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8], ext)
	return filepath.Join(dir, name)
}

// NewTemplate writes a starter template: one sheet whose first row holds
// headers in bold on a shaded fill.
func NewTemplate(path string, headers []string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Utilization"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FF8C42"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return err
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &row); err != nil {
		return err
	}
	if len(headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(headers))
		if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Op: "create directory", Err: err}
	}
	if err := f.SaveAs(path); err != nil {
		return &WriteError{Path: path, Op: "save", Err: err}
	}
	return nil
}
