// # internal/engine/registry/id.go
package registry

import (
	"fmt"
	"strings"
)

// PathSep joins scope segments inside FunctionID.Path.
const PathSep = "::"

// FunctionID identifies one definition: the file it lives in, its full scope
// path (file module, inline modules, impl type, enclosing functions, name) and a
// disambiguator that is non-zero only for the second and later definitions that
// would otherwise share the same file and path.
type FunctionID struct {
	File          string
	Path          string
	Disambiguator int
}

func NewFunctionID(file string, segments []string, name string) FunctionID {
	return FunctionID{File: file, Path: JoinPath(append(append([]string{}, segments...), name)...)}
}

func (id FunctionID) IsZero() bool {
	return id.File == "" && id.Path == ""
}

// Name is the last path segment.
func (id FunctionID) Name() string {
	if idx := strings.LastIndex(id.Path, PathSep); idx >= 0 {
		return id.Path[idx+len(PathSep):]
	}
	return id.Path
}

// Parent is the scope path that encloses the definition.
func (id FunctionID) Parent() string {
	if idx := strings.LastIndex(id.Path, PathSep); idx >= 0 {
		return id.Path[:idx]
	}
	return ""
}

func (id FunctionID) Segments() []string {
	return SplitPath(id.Path)
}

func (id FunctionID) String() string {
	if id.Disambiguator > 0 {
		return fmt.Sprintf("%s:%s#%d", id.File, id.Path, id.Disambiguator)
	}
	return id.File + ":" + id.Path
}

// Compare orders IDs by file, path, then disambiguator.
func Compare(a, b FunctionID) int {
	if c := strings.Compare(a.File, b.File); c != 0 {
		return c
	}
	if c := strings.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	switch {
	case a.Disambiguator < b.Disambiguator:
		return -1
	case a.Disambiguator > b.Disambiguator:
		return 1
	}
	return 0
}

func Less(a, b FunctionID) bool {
	return Compare(a, b) < 0
}

// JoinPath joins non-empty segments with PathSep.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, PathSep)
}

func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSep)
}

// StripGenerics removes every <...> group, turbofish included, keeping nested
// brackets balanced: `Vec::<Box<T>>::new` becomes `Vec::new`.
func StripGenerics(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "::::") {
		out = strings.ReplaceAll(out, "::::", "::")
	}
	return strings.TrimSuffix(out, PathSep)
}
