package registry

import "fmt"

// Builder is the registry while registration is still running. It accepts
// definitions but offers no lookups; Seal is the only way to read it back.
type Builder struct {
	defs   map[FunctionID]Definition
	sealed bool
}

func NewBuilder() *Builder {
	return &Builder{defs: make(map[FunctionID]Definition)}
}

// Register inserts def and returns the ID it was stored under. Registering a
// definition already present at the same location is a no-op. A different
// definition that collides with an existing ID gets the next free disambiguator.
func (b *Builder) Register(def Definition) FunctionID {
	if b.sealed {
		panic("registry: Register called after Seal")
	}
	if def.ID.IsZero() {
		panic(fmt.Sprintf("registry: definition %q has no id", def.Name))
	}

	id := def.ID
	for {
		existing, ok := b.defs[id]
		if !ok {
			break
		}
		if existing.Location == def.Location {
			return id
		}
		id.Disambiguator++
	}
	def.ID = id
	b.defs[id] = def
	return id
}

// AddFile registers every definition of one file's facts and returns how many
// were new.
func (b *Builder) AddFile(facts *FileFacts) int {
	before := len(b.defs)
	for _, def := range facts.Definitions {
		b.Register(def)
	}
	return len(b.defs) - before
}

func (b *Builder) Len() int {
	return len(b.defs)
}

// Seal freezes the builder into a read-only Registry. The builder must not be
// used afterwards.
func (b *Builder) Seal() *Registry {
	if b.sealed {
		panic("registry: Seal called twice")
	}
	b.sealed = true
	r := newRegistry(b.defs)
	b.defs = nil
	return r
}
