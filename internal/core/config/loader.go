package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load decodes path on top of Default, so keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	return Finalize(cfg)
}

// Finalize applies env overrides, fills zero values and validates. The CLI calls it
// after flag overrides as well.
func Finalize(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)

	if err := validateVersion(cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(cfg); err != nil {
		return nil, err
	}
	if err := validateResolver(cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(cfg); err != nil {
		return nil, err
	}
	if err := validateDiagnostics(cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Analysis.Root) == "" {
		cfg.Analysis.Root = "."
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = runtime.NumCPU()
	}
	if len(cfg.Analysis.Extensions) == 0 {
		cfg.Analysis.Extensions = []string{".rs"}
	}
	if strings.TrimSpace(cfg.Resolver.DispatchPolicy) == "" {
		cfg.Resolver.DispatchPolicy = PolicyUnder
	}
	if cfg.Resolver.ChunkSize <= 0 {
		cfg.Resolver.ChunkSize = 256
	}
	if cfg.Diagnostics.DroppedLogRate <= 0 {
		cfg.Diagnostics.DroppedLogRate = 20
	}
	if cfg.Diagnostics.DroppedLogBurst <= 0 {
		cfg.Diagnostics.DroppedLogBurst = 50
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Validation.MaxCallers <= 0 {
		cfg.Validation.MaxCallers = 25
	}
	if cfg.Validation.MaxCallees <= 0 {
		cfg.Validation.MaxCallees = 25
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = Default().Watch.Debounce
	}
}

func normalize(cfg *Config) {
	cfg.Resolver.DispatchPolicy = strings.ToLower(strings.TrimSpace(cfg.Resolver.DispatchPolicy))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))

	exts := make([]string, 0, len(cfg.Analysis.Extensions))
	seen := make(map[string]bool, len(cfg.Analysis.Extensions))
	for _, ext := range cfg.Analysis.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	cfg.Analysis.Extensions = exts
}
