package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.MaxParseFailures < 0 {
		return fmt.Errorf("analysis.max_parse_failures must be >= 0, got %d", cfg.Analysis.MaxParseFailures)
	}
	for _, ext := range cfg.Analysis.Extensions {
		if ext != ".rs" {
			return fmt.Errorf("analysis.extensions: unsupported extension %q (only .rs is parsed)", ext)
		}
	}
	return nil
}

func validateResolver(cfg *Config) error {
	switch cfg.Resolver.DispatchPolicy {
	case PolicyUnder, PolicyOver:
	default:
		return fmt.Errorf("resolver.dispatch_policy must be one of: %s, %s (got %q)", PolicyUnder, PolicyOver, cfg.Resolver.DispatchPolicy)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs: invalid pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateDiagnostics(cfg *Config) error {
	addr := strings.TrimSpace(cfg.Diagnostics.MetricsAddr)
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("diagnostics.metrics_addr %q is not host:port: %w", addr, err)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "json", "yaml", "dot", "mermaid", "tsv":
		return nil
	default:
		return fmt.Errorf("output.format must be one of: text, json, yaml, dot, mermaid, tsv (got %q)", cfg.Output.Format)
	}
}
