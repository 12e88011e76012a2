package step

import "fmt"

// BindingKind discriminates where an argument value comes from.
type BindingKind string

const (
	// BindInput reads a workflow input by name.
	BindInput BindingKind = "input"
	// BindStep reads an earlier step's result data by step name.
	BindStep BindingKind = "step"
)

// Binding declares the source of one run argument. Bindings are
// resolved by the engine against the validated input set or the
// results map; resolution failures are build-time errors, never a
// run-time surprise.
type Binding struct {
	Kind BindingKind
	Name string
}

// FromInput binds an argument to the workflow input with the given name.
func FromInput(name string) Binding {
	return Binding{Kind: BindInput, Name: name}
}

// FromStep binds an argument to the result data of the named step.
// The binding also acts as an ordering edge: the named step is
// guaranteed to land in a strictly earlier batch.
func FromStep(name string) Binding {
	return Binding{Kind: BindStep, Name: name}
}

// String renders the binding in the "kind:name" wire form.
func (b Binding) String() string {
	return fmt.Sprintf("%s:%s", b.Kind, b.Name)
}
