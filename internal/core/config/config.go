package config

import (
	"runtime"
	"time"
)

const (
	PolicyUnder = "under"
	PolicyOver  = "over"
)

type Config struct {
	Version     int         `toml:"version"`
	Analysis    Analysis    `toml:"analysis"`
	Resolver    Resolver    `toml:"resolver"`
	Exclude     Exclude     `toml:"exclude"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Output      Output      `toml:"output"`
	Validation  Validation  `toml:"validation"`
	Watch       Watch       `toml:"watch"`
}

type Analysis struct {
	Root             string   `toml:"root"`
	Workers          int      `toml:"workers"`
	Extensions       []string `toml:"extensions"`
	StrictSyntax     bool     `toml:"strict_syntax"`
	MaxParseFailures int      `toml:"max_parse_failures"`
}

type Resolver struct {
	// DispatchPolicy decides what happens to trait calls whose receiver type is
	// unknown: "under" skips them, "over" links every implementation.
	DispatchPolicy     string `toml:"dispatch_policy"`
	ChunkSize          int    `toml:"chunk_size"`
	MethodNameFallback bool   `toml:"method_name_fallback"`
	MacroArgs          bool   `toml:"macro_args"`
	FunctionReferences bool   `toml:"function_references"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Diagnostics struct {
	LogDropped      bool    `toml:"log_dropped"`
	DroppedLogRate  float64 `toml:"dropped_log_rate"`
	DroppedLogBurst int     `toml:"dropped_log_burst"`
	MetricsAddr     string  `toml:"metrics_addr"`
	TraceEndpoint   string  `toml:"trace_endpoint"`
	TraceInsecure   bool    `toml:"trace_insecure"`
}

type Output struct {
	Format   string `toml:"format"`
	Snapshot string `toml:"snapshot"`
}

type Validation struct {
	MaxCallers int `toml:"max_callers"`
	MaxCallees int `toml:"max_callees"`
	// EntryPoints and Whitelist hold function names or full scope paths.
	EntryPoints []string `toml:"entry_points"`
	Whitelist   []string `toml:"whitelist"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Version: 1,
		Analysis: Analysis{
			Root:       ".",
			Workers:    runtime.NumCPU(),
			Extensions: []string{".rs"},
		},
		Resolver: Resolver{
			DispatchPolicy:     PolicyUnder,
			ChunkSize:          256,
			MethodNameFallback: true,
			MacroArgs:          true,
			FunctionReferences: true,
		},
		Exclude: Exclude{
			Dirs: []string{".git", "target", "node_modules"},
		},
		Diagnostics: Diagnostics{
			DroppedLogRate:  20,
			DroppedLogBurst: 50,
		},
		Output: Output{
			Format: "text",
		},
		Validation: Validation{
			MaxCallers: 25,
			MaxCallees: 25,
		},
		Watch: Watch{
			Debounce: 500 * time.Millisecond,
		},
	}
}
