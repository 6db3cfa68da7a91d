package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DEBTGRAPH_[SECTION]_[KEY] (e.g., DEBTGRAPH_RESOLVER_DISPATCH_POLICY).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Analysis.Root, "DEBTGRAPH_ANALYSIS_ROOT")
	setEnvInt(&cfg.Analysis.Workers, "DEBTGRAPH_ANALYSIS_WORKERS")
	setEnvBool(&cfg.Analysis.StrictSyntax, "DEBTGRAPH_ANALYSIS_STRICT_SYNTAX")
	setEnvInt(&cfg.Analysis.MaxParseFailures, "DEBTGRAPH_ANALYSIS_MAX_PARSE_FAILURES")

	setEnvString(&cfg.Resolver.DispatchPolicy, "DEBTGRAPH_RESOLVER_DISPATCH_POLICY")
	setEnvInt(&cfg.Resolver.ChunkSize, "DEBTGRAPH_RESOLVER_CHUNK_SIZE")

	setEnvBool(&cfg.Diagnostics.LogDropped, "DEBTGRAPH_DIAGNOSTICS_LOG_DROPPED")
	setEnvString(&cfg.Diagnostics.MetricsAddr, "DEBTGRAPH_DIAGNOSTICS_METRICS_ADDR")
	setEnvString(&cfg.Diagnostics.TraceEndpoint, "DEBTGRAPH_DIAGNOSTICS_TRACE_ENDPOINT")

	setEnvString(&cfg.Output.Snapshot, "DEBTGRAPH_OUTPUT_SNAPSHOT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}
