package registry

import "strings"

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeType
	ScopeTrait
	ScopeFunction
	ScopeClosure
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeType:
		return "type"
	case ScopeTrait:
		return "trait"
	case ScopeFunction:
		return "function"
	case ScopeClosure:
		return "closure"
	default:
		return "unknown"
	}
}

type Scope struct {
	Kind ScopeKind
	Name string
}

// ScopeStack mirrors AST nesting during a traversal. Callers push when they
// enter a block and pop when they leave it.
type ScopeStack struct {
	frames []Scope
}

// NewScopeStack seeds the stack with one module frame per segment of module.
func NewScopeStack(module string) *ScopeStack {
	s := &ScopeStack{}
	for _, seg := range SplitPath(module) {
		s.Push(ScopeModule, seg)
	}
	return s
}

func (s *ScopeStack) Push(kind ScopeKind, name string) {
	s.frames = append(s.frames, Scope{Kind: kind, Name: name})
}

func (s *ScopeStack) Pop() Scope {
	if len(s.frames) == 0 {
		panic("registry: pop on empty scope stack")
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top
}

func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

func (s *ScopeStack) Top() (Scope, bool) {
	if len(s.frames) == 0 {
		return Scope{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Segments returns a copy of the frame names, outermost first.
func (s *ScopeStack) Segments() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Name
	}
	return out
}

func (s *ScopeStack) Path() string {
	return JoinPath(s.Segments()...)
}

// ModulePath is the path made of the leading module frames.
func (s *ScopeStack) ModulePath() string {
	var segs []string
	for _, f := range s.frames {
		if f.Kind != ScopeModule {
			break
		}
		segs = append(segs, f.Name)
	}
	return strings.Join(segs, PathSep)
}

// Nearest returns the innermost frame of one of kinds together with the full
// path up to and including it.
func (s *ScopeStack) Nearest(kinds ...ScopeKind) (Scope, string, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if s.frames[i].Kind != k {
				continue
			}
			segs := make([]string, 0, i+1)
			for _, f := range s.frames[:i+1] {
				segs = append(segs, f.Name)
			}
			return s.frames[i], JoinPath(segs...), true
		}
	}
	return Scope{}, "", false
}

// InsideFunction reports whether any function or closure frame is open.
func (s *ScopeStack) InsideFunction() bool {
	_, _, ok := s.Nearest(ScopeFunction, ScopeClosure)
	return ok
}
