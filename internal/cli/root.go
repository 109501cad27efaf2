// Package cli wires the cobra command tree: the interactive TUI by default
// plus headless subcommands for scripted use.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nconklindev/utilrep/internal/config"
	"github.com/nconklindev/utilrep/internal/converter"
	"github.com/nconklindev/utilrep/internal/exporter"
	"github.com/nconklindev/utilrep/internal/logging"
	"github.com/nconklindev/utilrep/internal/types"
	"github.com/nconklindev/utilrep/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type options struct {
	configPath string
	output     string
	outputDir  string
	format     string
	template   string
}

// NewRootCmd builds the utilrep command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "utilrep",
		Short: "Turn task-tracker CSV exports into utilization reports",
		Long: `utilrep converts a task export (CSV or XLSX) into the utilization report
layout and writes it as CSV or into a copy of a styled XLSX template.

Run without arguments to pick a file interactively.`,
		Version:       fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", info.Version, info.Commit, info.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}
	rootCmd.SetVersionTemplate("utilrep {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")

	rootCmd.AddCommand(newConvertCmd(opts), newInitTemplateCmd(opts), newInitConfigCmd())
	return rootCmd
}

func newConvertCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [input.csv]",
		Short: "Convert an export without the interactive UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogDir)
			if err != nil {
				return err
			}
			defer logger.Close()

			runOpts := converter.RunOptions{
				InputFile:    args[0],
				OutputFile:   opts.output,
				OutputDir:    cfg.OutputDir,
				Format:       cfg.Format,
				TemplatePath: cfg.Template,
			}
			logger.Printf("convert: input=%s format=%s template=%s", runOpts.InputFile, runOpts.Format, runOpts.TemplatePath)

			result, err := converter.Run(runOpts, nil)
			if err != nil {
				logger.Printf("convert failed: %v", err)
				return err
			}
			logger.Printf("convert: wrote %s (%d rows)", result.OutputFile, result.RowsProcessed)

			fmt.Fprintln(cmd.OutOrStdout(), result.OutputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: unique name in the output directory)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for generated reports")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: xlsx or csv")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "XLSX template path")
	return cmd
}

func newInitTemplateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init-template [path]",
		Short: "Write a starter XLSX template with the report headers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			path := cfg.Template
			if len(args) == 1 {
				path = args[0]
			}
			if err := exporter.NewTemplate(path, converter.ReportColumns); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a commented " + config.DefaultFile,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// loadConfig reads the config file and applies any flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = strings.ToLower(opts.format)
	}
	if flags.Changed("template") {
		cfg.Template = opts.template
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}

	// An explicit output file names its own format unless --format says otherwise.
	if ext := outputFormat(opts.output); ext != "" && ext != cfg.Format {
		if flags.Changed("format") {
			return config.Config{}, fmt.Errorf("output file %s does not match --format %s", opts.output, cfg.Format)
		}
		cfg.Format = ext
	}
	return cfg, cfg.Validate()
}

// outputFormat returns the report format implied by path's extension, or ""
// when the extension is not one utilrep writes.
func outputFormat(path string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case types.FormatCSV, types.FormatXLSX:
		return ext
	}
	return ""
}

func runTUI(opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	p := tea.NewProgram(ui.InitialModel(cfg, logger), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
