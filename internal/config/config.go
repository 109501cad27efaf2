// Package config loads utilrep.yaml, which holds the template location and
// where generated reports and logs are written.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/utilrep/internal/types"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "utilrep.yaml"

const defaultConfigYAML = `# utilrep configuration
# Relative paths are resolved against the directory holding this file.

# Styled workbook whose first sheet receives the report from row 2.
template: templates/utilization_template.xlsx

# Where generated reports are written when no output path is given.
output_dir: artifacts

# Output format: xlsx (template based) or csv.
format: xlsx

log_dir: artifacts/logs
`

// Config models utilrep.yaml.
type Config struct {
	Template  string `yaml:"template"`
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
	LogDir    string `yaml:"log_dir"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Template:  filepath.Join("templates", "utilization_template.xlsx"),
		OutputDir: "artifacts",
		Format:    types.FormatXLSX,
		LogDir:    filepath.Join("artifacts", "logs"),
	}
}

// Load reads the config file at path. An empty path means DefaultFile, which
// may be absent; an explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Template = resolve(base, cfg.Template)
	cfg.OutputDir = resolve(base, cfg.OutputDir)
	cfg.LogDir = resolve(base, cfg.LogDir)
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	switch c.Format {
	case types.FormatCSV, types.FormatXLSX:
	default:
		return fmt.Errorf("config: unsupported format %q (must be csv or xlsx)", c.Format)
	}
	if c.Format == types.FormatXLSX && strings.TrimSpace(c.Template) == "" {
		return fmt.Errorf("config: template is required for xlsx output")
	}
	return nil
}

// WriteDefault writes a commented starter config to path unless one exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
