package registry

import "sort"

// Registry is the sealed, read-only function registry. All methods are safe
// for concurrent use because nothing mutates it after construction.
type Registry struct {
	defs   map[FunctionID]Definition
	ids    []FunctionID
	byPath map[string][]FunctionID
	byName map[string][]FunctionID
	byFile map[string][]FunctionID
}

func newRegistry(defs map[FunctionID]Definition) *Registry {
	r := &Registry{
		defs:   defs,
		ids:    make([]FunctionID, 0, len(defs)),
		byPath: make(map[string][]FunctionID),
		byName: make(map[string][]FunctionID),
		byFile: make(map[string][]FunctionID),
	}
	for id := range defs {
		r.ids = append(r.ids, id)
	}
	sortIDs(r.ids)

	for _, id := range r.ids {
		r.byPath[id.Path] = append(r.byPath[id.Path], id)
		r.byName[id.Name()] = append(r.byName[id.Name()], id)
		r.byFile[id.File] = append(r.byFile[id.File], id)
	}
	return r
}

func sortIDs(ids []FunctionID) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

func (r *Registry) Len() int {
	return len(r.ids)
}

func (r *Registry) Lookup(id FunctionID) (Definition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

func (r *Registry) Contains(id FunctionID) bool {
	_, ok := r.defs[id]
	return ok
}

// IDs returns every registered ID in sorted order.
func (r *Registry) IDs() []FunctionID {
	return append([]FunctionID(nil), r.ids...)
}

// ByPath returns the IDs whose full scope path equals path.
func (r *Registry) ByPath(path string) []FunctionID {
	return r.byPath[path]
}

// ByName returns the IDs whose last path segment equals name.
func (r *Registry) ByName(name string) []FunctionID {
	return r.byName[name]
}

func (r *Registry) InFile(file string) []FunctionID {
	return r.byFile[file]
}

func (r *Registry) Files() []string {
	files := make([]string, 0, len(r.byFile))
	for f := range r.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
