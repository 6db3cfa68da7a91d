// # internal/engine/resolver/heuristics.go
package resolver

import (
	"strings"

	"debtgraph/internal/engine/registry"
)

// stdMethods are method names so common on std types (Option, Result, Vec,
// String, iterators, smart pointers) that matching them by name alone against
// user code would invent edges.
var stdMethods = toSet(
	"clone", "to_string", "to_owned", "into", "from", "try_into", "try_from",
	"iter", "iter_mut", "into_iter", "map", "map_err", "and_then", "or_else",
	"unwrap", "unwrap_or", "unwrap_or_else", "unwrap_or_default", "expect",
	"ok", "err", "ok_or", "ok_or_else", "is_some", "is_none", "is_ok", "is_err",
	"len", "is_empty", "push", "push_str", "pop", "insert", "remove", "get",
	"get_mut", "contains", "contains_key", "extend", "collect", "filter",
	"filter_map", "flat_map", "fold", "for_each", "any", "all", "find",
	"position", "next", "as_ref", "as_mut", "as_str", "as_slice", "borrow",
	"borrow_mut", "lock", "read", "write", "clear", "sort", "sort_by",
	"sort_by_key", "join", "split", "trim", "starts_with", "ends_with",
	"to_lowercase", "to_uppercase", "fmt", "eq", "ne", "cmp", "partial_cmp",
	"hash", "default", "drop", "deref", "deref_mut", "take", "replace",
	"chars", "bytes", "lines", "keys", "values", "entry", "or_insert",
	"or_insert_with", "enumerate", "zip", "rev", "skip", "count", "sum", "max",
	"min", "copied", "cloned", "first", "last", "send", "recv", "spawn",
	"with_capacity", "capacity", "reserve", "truncate", "drain", "retain",
	"parse", "format", "display", "to_vec", "as_bytes", "split_whitespace",
)

func toSet(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// IsStdMethod reports whether name is a well-known std method name.
func IsStdMethod(name string) bool {
	return stdMethods[baseName(name)]
}

// baseName drops a turbofish suffix: `collect::<Vec<_>>` becomes `collect`.
func baseName(callee string) string {
	if idx := strings.Index(callee, registry.PathSep+"<"); idx >= 0 {
		return callee[:idx]
	}
	return callee
}

func isTypeLike(segment string) bool {
	return segment != "" && segment[0] >= 'A' && segment[0] <= 'Z'
}

// ancestors lists module and every enclosing module, innermost first. The
// crate root is not included.
func ancestors(module string) []string {
	var out []string
	for module != "" {
		out = append(out, module)
		idx := strings.LastIndex(module, registry.PathSep)
		if idx < 0 {
			break
		}
		module = module[:idx]
	}
	return out
}

// visibleFrom reports whether a definition whose parent scope is parent can
// be named unqualified from scope.
func visibleFrom(parent, scope string) bool {
	return parent == "" || parent == scope || strings.HasPrefix(scope, parent+registry.PathSep)
}
