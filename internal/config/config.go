package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/logger"
	"github.com/loykin/castctl/internal/process"
)

// Defaults applied by Normalize for fields left empty in the TOML file.
const (
	DefaultWorkerCommand   = "castd"
	DefaultNPMBin          = "npm"
	DefaultPIDFileName     = "castd.pid"
	DefaultPackagesDirName = "node_modules"
	DefaultAdvisoryTimeout = 10 * time.Second
)

// FileConfig represents the top-level TOML structure of castctl.toml.
type FileConfig struct {
	InstallDir  string `toml:"install_dir" mapstructure:"install_dir"`
	Worker      string `toml:"worker" mapstructure:"worker"`
	NPMBin      string `toml:"npm_bin" mapstructure:"npm_bin"`
	PIDFile     string `toml:"pid_file" mapstructure:"pid_file"`
	PackagesDir string `toml:"packages_dir" mapstructure:"packages_dir"`

	Env      []string `toml:"env" mapstructure:"env"`
	EnvFiles []string `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv bool     `toml:"use_os_env" mapstructure:"use_os_env"`

	Advisory AdvisoryConfig `toml:"advisory" mapstructure:"advisory"`
	Log      *LogConfig     `toml:"log" mapstructure:"log"`
	History  HistoryConfig  `toml:"history" mapstructure:"history"`
}

type AdvisoryConfig struct {
	URL     string        `toml:"url" mapstructure:"url"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	Stdout     string `toml:"stdout" mapstructure:"stdout"`
	Stderr     string `toml:"stderr" mapstructure:"stderr"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type HistoryConfig struct {
	Type string `toml:"type" mapstructure:"type"`
	Path string `toml:"path" mapstructure:"path"`
	DSN  string `toml:"dsn" mapstructure:"dsn"`
}

// Load parses the TOML file at path and fills derived defaults. A missing
// file is not an error when path is empty; the zero config normalized
// against the current directory is returned instead.
func Load(path string) (*FileConfig, error) {
	var fc FileConfig
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(&fc); err != nil {
			return nil, err
		}
	}
	if err := fc.Normalize(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Normalize fills empty fields with their defaults. Relative paths stay
// relative; they are interpreted against the install dir by the callers
// that consume them.
func (fc *FileConfig) Normalize() error {
	if fc.InstallDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve install dir: %w", err)
		}
		fc.InstallDir = wd
	}
	if fc.Worker == "" {
		fc.Worker = DefaultWorkerCommand
	}
	if fc.NPMBin == "" {
		fc.NPMBin = DefaultNPMBin
	}
	if fc.PIDFile == "" {
		fc.PIDFile = filepath.Join(fc.InstallDir, DefaultPIDFileName)
	}
	if fc.PackagesDir == "" {
		fc.PackagesDir = filepath.Join(fc.InstallDir, DefaultPackagesDirName)
	}
	if fc.Advisory.Timeout <= 0 {
		fc.Advisory.Timeout = DefaultAdvisoryTimeout
	}
	return nil
}

// WorkerSpec builds the spec used to spawn and drive the castd worker.
func (fc *FileConfig) WorkerSpec() (process.WorkerSpec, error) {
	env, err := fc.WorkerEnv()
	if err != nil {
		return process.WorkerSpec{}, err
	}
	spec := process.WorkerSpec{
		Command: fc.Worker,
		Dir:     fc.InstallDir,
		Env:     env,
	}
	if fc.Log != nil {
		spec.Log = logger.Config{
			Dir:        fc.Log.Dir,
			StdoutPath: fc.Log.Stdout,
			StderrPath: fc.Log.Stderr,
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		}
	}
	return spec, nil
}

// HistoryStore translates the history section into a store config.
func (fc *FileConfig) HistoryStore() history.Config {
	path := fc.History.Path
	if path == "" && fc.History.DSN == "" {
		path = filepath.Join(fc.InstallDir, "castctl-history.db")
	}
	return history.Config{Type: fc.History.Type, Path: path, DSN: fc.History.DSN}
}

// WorkerEnv merges env sources for the worker. Precedence: OS env (when
// enabled) provides the base; env_files apply next in order; the top-level
// env list overrides last.
func (fc *FileConfig) WorkerEnv() ([]string, error) {
	if !fc.UseOSEnv && len(fc.EnvFiles) == 0 && len(fc.Env) == 0 {
		return nil, nil
	}
	m := make(map[string]string)
	if fc.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	for _, p := range fc.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range fc.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// loadEnvFile parses a simple .env file with KEY=VALUE lines (no export, no
// quotes). Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			m[strings.TrimSpace(line[:i])] = strings.TrimSpace(line[i+1:])
		}
	}
	return m, nil
}
