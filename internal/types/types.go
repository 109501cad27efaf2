package types

// RecordSet is a decoded table: one header row and the data rows beneath it.
// Every row is expected to have len(Headers) cells.
type RecordSet struct {
	Headers   []string
	Rows      [][]string
	HeaderRow int
}

// Column returns the index of the first header equal to name, or -1.
func (rs *RecordSet) Column(name string) int {
	for i, h := range rs.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so pipeline stages never share backing arrays.
func (rs *RecordSet) Clone() *RecordSet {
	out := &RecordSet{
		Headers:   append([]string(nil), rs.Headers...),
		Rows:      make([][]string, len(rs.Rows)),
		HeaderRow: rs.HeaderRow,
	}
	for i, row := range rs.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

type RunResult struct {
	InputFile     string
	OutputFile    string
	Format        string
	Columns       []string
	RowsProcessed int
}

// Output formats understood by the converter and exporter.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)
