package registry

type Kind string

const (
	KindFunction     Kind = "function"
	KindMethod       Kind = "method"
	KindAssociated   Kind = "associated_function"
	KindTraitDefault Kind = "trait_default"
	KindNested       Kind = "nested_function"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "pub"
	VisibilityCrate   Visibility = "pub(crate)"
	VisibilityScoped  Visibility = "pub(scoped)"
	VisibilityPrivate Visibility = "private"
)

type Location struct {
	File    string
	Line    int
	Column  int
	EndLine int
}

// Definition is the metadata recorded for one registered function.
type Definition struct {
	ID           FunctionID
	Name         string
	Kind         Kind
	Location     Location
	Visibility   Visibility
	Async        bool
	Const        bool
	Unsafe       bool
	GenericArity int

	// ImplType is the simple name of the impl/trait owner type, Trait the trait
	// being implemented or declared. Both are empty for free functions.
	ImplType string
	Trait    string

	IsTest       bool
	IsEntryPoint bool

	LOC          int
	BranchCount  int
	NestingDepth int
}

// Free reports whether the function can be named without a type qualifier.
func (d Definition) Free() bool {
	return d.Kind == KindFunction || d.Kind == KindNested
}
