package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/utilrep/internal/config"
	"github.com/nconklindev/utilrep/internal/converter"
	"github.com/nconklindev/utilrep/internal/logging"
	"github.com/nconklindev/utilrep/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	previewRows     = 10
	previewColWidth = 18
)

type state int

const (
	stateFilePicker state = iota
	statePreview
	stateProcessing
	stateComplete
	stateError
)

type Model struct {
	state        state
	cfg          config.Config
	logger       *logging.Logger
	filepicker   filepicker.Model
	selectedFile string
	fileSize     int64
	fileData     *types.RecordSet
	missing      []string
	preview      table.Model
	format       string
	result       *types.RunResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan conversionResultMsg
}

type conversionResultMsg struct {
	result *types.RunResult
	err    error
}

type fileLoadedMsg struct {
	data *types.RecordSet
	size int64
	err  error
}

type conversionCompleteMsg struct {
	result *types.RunResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

func InitialModel(cfg config.Config, logger *logging.Logger) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".xlsx"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	return Model{
		state:      stateFilePicker,
		cfg:        cfg,
		logger:     logger,
		filepicker: fp,
		format:     cfg.Format,
		progress:   prog,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Subtract space for title, subtitle, help text, and padding
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}

		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case statePreview:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "f":
				m.format = toggleFormat(m.format)
			case "esc":
				m.state = stateFilePicker
				m.fileData = nil
				return m, nil
			case "enter":
				if len(m.missing) == 0 {
					m.state = stateProcessing
					return m.convertFile()
				}
			default:
				var cmd tea.Cmd
				m.preview, cmd = m.preview.Update(msg)
				return m, cmd
			}

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.logger.Printf("load %s failed: %v", m.selectedFile, msg.err)
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.fileData = msg.data
		m.fileSize = msg.size
		m.missing = missingColumns(msg.data)
		m.preview = newPreviewTable(msg.data)
		m.state = statePreview
		return m, nil

	case conversionCompleteMsg:
		if msg.err != nil {
			m.logger.Printf("convert %s failed: %v", m.selectedFile, msg.err)
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.logger.Printf("convert: wrote %s (%d rows)", msg.result.OutputFile, msg.result.RowsProcessed)
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadFile(path)
		}

		return m, cmd
	}

	return m, nil
}

func toggleFormat(format string) string {
	if format == types.FormatXLSX {
		return types.FormatCSV
	}
	return types.FormatXLSX
}

// missingColumns lists required source columns absent from data, so the
// preview can warn before a run is attempted.
func missingColumns(data *types.RecordSet) []string {
	var missing []string
	for _, name := range converter.RequiredColumns {
		if data.Column(name) == -1 {
			missing = append(missing, name)
		}
	}
	return missing
}

func newPreviewTable(data *types.RecordSet) table.Model {
	columns := make([]table.Column, len(data.Headers))
	for i, h := range data.Headers {
		columns[i] = table.Column{Title: h, Width: previewColWidth}
	}

	n := len(data.Rows)
	if n > previewRows {
		n = previewRows
	}
	rows := make([]table.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = table.Row(data.Rows[i])
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(n+1),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#FF8C42")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF8C42"))
	t.SetStyles(s)

	return t
}

func (m Model) loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		data, err := converter.ReadFileData(path)
		return fileLoadedMsg{data: data, size: size, err: err}
	}
}

func (m Model) convertFile() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan conversionResultMsg, 1)

	opts := converter.RunOptions{
		InputFile:    m.selectedFile,
		OutputDir:    m.cfg.OutputDir,
		Format:       m.format,
		TemplatePath: m.cfg.Template,
	}
	m.logger.Printf("convert: input=%s format=%s template=%s", opts.InputFile, opts.Format, opts.TemplatePath)

	// Capture channels for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				result, err := converter.Run(opts, progressChan)

				resultChan <- conversionResultMsg{result: result, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return conversionCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case statePreview:
		return m.viewPreview()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("📊 Utilization Report Generator")
	s.WriteString(title)
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a task export (CSV or XLSX) to convert"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewPreview() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📋 Data Preview"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", filepath.Base(m.selectedFile))))
	s.WriteString("\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		MetricStyle.Render(fmt.Sprintf("Rows: %d", len(m.fileData.Rows))),
		MetricStyle.Render(fmt.Sprintf("Columns: %d", len(m.fileData.Headers))),
		MetricStyle.Render(fmt.Sprintf("Size: %.1f KB", float64(m.fileSize)/1024)),
	))
	s.WriteString("\n")
	if m.fileData.HeaderRow > 0 {
		s.WriteString(UnselectedStyle.Render(fmt.Sprintf("Header found on row %d", m.fileData.HeaderRow+1)))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(m.preview.View())
	s.WriteString("\n\n")

	if len(m.missing) > 0 {
		s.WriteString(ErrorStyle.Render("✗ Missing required columns: " + strings.Join(m.missing, ", ")))
	} else {
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("✓ All %d required columns present", len(converter.RequiredColumns))))
	}
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("Output format: %s\n", SelectedStyle.Render(strings.ToUpper(m.format))))
	if m.format == types.FormatXLSX {
		s.WriteString(UnselectedStyle.Render(fmt.Sprintf("Template: %s", m.cfg.Template)))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("←/→ ↑/↓: scroll • f: toggle format • enter: process • esc: back • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🚀 Processing..."))
	s.WriteString("\n\n")
	s.WriteString("Building utilization report...")
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Report Ready!"))
	s.WriteString("\n\n")

	// Truncate paths if they're too long
	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", truncatePath(m.result.InputFile, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", truncatePath(m.result.OutputFile, maxPathLen))))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Format: %s\n", strings.ToUpper(m.result.Format)))
	s.WriteString(fmt.Sprintf("Rows written: %d\n", m.result.RowsProcessed))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press enter to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press enter to exit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(p string, max int) string {
	if len(p) > max {
		return "..." + p[len(p)-max+3:]
	}
	return p
}
