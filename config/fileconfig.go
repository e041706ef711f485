package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// FileConfig is the on-disk shape used by the out-of-scope CLI harness
// (cmd/embive-run) to drive the sandbox from a TOML file, following the
// teacher's config.Config/DefaultConfig/Load/LoadFrom shape. The
// interpreter itself never reads a file; FileConfig only exists to be
// translated into a Config by the harness.
type FileConfig struct {
	Execution struct {
		InstructionLimit uint64 `toml:"instruction_limit"`
		EntryPoint       string `toml:"entry_point"` // hex ("0x...") or decimal; empty means "use image header"
		InterruptVector  string `toml:"interrupt_vector"`
		StrictCSR        bool   `toml:"strict_csr"`
	} `toml:"execution"`

	Trace struct {
		Enabled bool   `toml:"enabled"`
		Output  string `toml:"output_file"`
	} `toml:"trace"`
}

// DefaultFileConfig returns the harness's built-in defaults.
func DefaultFileConfig() *FileConfig {
	cfg := &FileConfig{}
	cfg.Execution.InstructionLimit = 0
	cfg.Execution.EntryPoint = ""
	cfg.Execution.InterruptVector = "0x0"
	cfg.Execution.StrictCSR = false
	cfg.Trace.Enabled = false
	cfg.Trace.Output = "trace.log"
	return cfg
}

// DefaultConfigPath returns the platform-specific default location for
// the harness config file.
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		dir := os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(dir, "embive", "config.toml")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "embive.toml"
		}
		return filepath.Join(home, ".config", "embive", "config.toml")
	}
}

// LoadFile loads a FileConfig from path, falling back to defaults when
// the file does not exist.
func LoadFile(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("embive: parse config file: %w", err)
	}
	return cfg, nil
}

// ParseUint32 parses a hex ("0x...") or decimal string into a uint32,
// used for the entry_point / interrupt_vector fields above.
func ParseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	var v uint32
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err == nil {
		return v, nil
	}
	_, err = fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("embive: invalid number %q", s)
	}
	return v, nil
}
