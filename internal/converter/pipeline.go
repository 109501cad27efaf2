package converter

import (
	"fmt"

	"github.com/nconklindev/utilrep/internal/types"
)

type stage struct {
	name  string
	apply func(*types.RecordSet) (*types.RecordSet, error)
}

var stages = []stage{
	{"select columns", SelectColumns},
	{"rename columns", func(rs *types.RecordSet) (*types.RecordSet, error) { return RenameColumns(rs), nil }},
	{"normalize dates", NormalizeDates},
	{"convert durations", ConvertDurations},
}

// SelectColumns projects rs onto RequiredColumns, in that order.
// All missing columns are reported together before any row is read.
func SelectColumns(rs *types.RecordSet) (*types.RecordSet, error) {
	indices := make([]int, len(RequiredColumns))
	var missing []string
	for i, name := range RequiredColumns {
		indices[i] = rs.Column(name)
		if indices[i] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	out := &types.RecordSet{
		Headers: append([]string(nil), RequiredColumns...),
		Rows:    make([][]string, len(rs.Rows)),
	}
	for r, row := range rs.Rows {
		projected := make([]string, len(indices))
		for i, idx := range indices {
			if idx < len(row) {
				projected[i] = row[idx]
			}
		}
		out.Rows[r] = projected
	}
	return out, nil
}

// RenameColumns turns a selected record set into the report layout: source
// columns are renamed, End Date copies Due Date and the risk column is blank.
func RenameColumns(rs *types.RecordSet) *types.RecordSet {
	out := &types.RecordSet{
		Headers: make([]string, 0, len(ReportColumns)),
		Rows:    make([][]string, len(rs.Rows)),
	}
	for _, h := range rs.Headers {
		if name, ok := renames[h]; ok {
			out.Headers = append(out.Headers, name)
		} else {
			out.Headers = append(out.Headers, h)
		}
	}
	out.Headers = append(out.Headers, ColEndDate, ColRisk)

	due := out.Column(ColDueDate)
	for r, row := range rs.Rows {
		next := make([]string, 0, len(out.Headers))
		next = append(next, row...)
		for len(next) < len(rs.Headers) {
			next = append(next, "")
		}
		endDate := ""
		if due != -1 {
			endDate = next[due]
		}
		out.Rows[r] = append(next, endDate, "")
	}
	return out
}

// Transform runs the full report pipeline over rs. Any stage failure aborts
// the run and no partial record set is returned. If progressChan is non-nil
// it receives the completed fraction after each stage; sends never block.
func Transform(rs *types.RecordSet, progressChan chan<- float64) (*types.RecordSet, error) {
	return transform(rs, func(done int) {
		sendProgress(progressChan, float64(done)/float64(len(stages)))
	})
}

func transform(rs *types.RecordSet, onStage func(done int)) (*types.RecordSet, error) {
	current := rs
	for i, s := range stages {
		next, err := s.apply(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		current = next
		if onStage != nil {
			onStage(i + 1)
		}
	}
	return current, nil
}

func sendProgress(progressChan chan<- float64, p float64) {
	if progressChan == nil {
		return
	}
	select {
	case progressChan <- p:
	default:
	}
}
