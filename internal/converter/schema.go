package converter

// Source columns of a task-tracker export, in the order the report uses them.
var RequiredColumns = []string{
	"Parent summary",
	"Summary",
	"Assignee",
	"Custom field (Start date)",
	"Due date",
	"Σ Original Estimate",
	"Time Spent",
	"Status",
}

// Report column names.
const (
	ColModule    = "Module / Category"
	ColTask      = "Task Details"
	ColAssignee  = "Assigned To"
	ColStartDate = "Start Date"
	ColDueDate   = "Due Date"
	ColPlanned   = "Planned (Hrs)"
	ColActual    = "Actual (Hrs)"
	ColStatus    = "Status"
	ColEndDate   = "End Date"
	ColRisk      = "Risk / Comments / Comp Off"
)

// ReportColumns is the fixed column order of a utilization report.
var ReportColumns = []string{
	ColModule,
	ColTask,
	ColAssignee,
	ColStartDate,
	ColDueDate,
	ColPlanned,
	ColActual,
	ColStatus,
	ColEndDate,
	ColRisk,
}

// renames maps source column -> report column.
var renames = map[string]string{
	"Parent summary":            ColModule,
	"Summary":                   ColTask,
	"Assignee":                  ColAssignee,
	"Custom field (Start date)": ColStartDate,
	"Due date":                  ColDueDate,
	"Σ Original Estimate":       ColPlanned,
	"Time Spent":                ColActual,
	"Status":                    ColStatus,
}

// Source columns that may hold Excel date serials in XLSX exports.
var sourceDateColumns = []string{"Custom field (Start date)", "Due date"}

var (
	DateColumns = []string{ColStartDate, ColDueDate}
	HourColumns = []string{ColPlanned, ColActual}
)
