package registry

// TraitImpl records one `impl Trait for Type` block and the methods it defines.
type TraitImpl struct {
	File    string
	Trait   string
	Type    string
	Methods map[string]FunctionID
}

// TraitDecl records a trait declaration: every method it names and the
// definitions of the ones that carry a default body.
type TraitDecl struct {
	File     string
	Name     string
	Path     string
	Methods  []string
	Defaults map[string]FunctionID
}

// FileFacts is everything the registration pass learned from one file. Workers
// return it by value; nothing in it is shared with other workers.
type FileFacts struct {
	File        string
	Module      string
	Definitions []Definition
	Calls       []UnresolvedCall
	Impls       []TraitImpl
	Traits      []TraitDecl
	// Orphans counts call expressions found outside any function body,
	// Indirect the calls through closures, fields or indexing.
	Orphans  int
	Indirect int
}
