package weft

// Directive is a strategy object that turns a (value, Part) pair into a
// Binding. Components, templates, keyed lists, and the backend's primitives
// are all directives.
//
// Two directives are "the same type" when they are the same interface value
// (reference identity), never by structural comparison. Slot reconciliation
// relies on this: a component function is memoized into one directive
// instance per function so successive renders of the same component resolve
// to the same directive identity.
type Directive interface {
	// ResolveBinding constructs a binding for value at part. The returned
	// binding holds value as pending and is not yet connected.
	ResolveBinding(value any, part Part, ctx *UpdateContext) (Binding, error)

	// Name identifies the directive in error messages.
	Name() string
}

// DirectiveValue pairs a directive with the inner value it should bind.
// It is the resolved form every dynamic value normalizes to before slot
// reconciliation.
type DirectiveValue struct {
	Directive Directive
	Value     any
}

// resolveDirectiveValue normalizes an arbitrary value to its (directive,
// inner value) pair. Explicit DirectiveValues pass through; everything else
// is a literal and resolves to the backend's default primitive for the part
// kind.
func resolveDirectiveValue(value any, part Part, ctx *UpdateContext) DirectiveValue {
	switch v := value.(type) {
	case DirectiveValue:
		return v
	case TemplateResult:
		return DirectiveValue{Directive: templateDirectiveFor(v.Template), Value: v.Binds}
	default:
		return DirectiveValue{Directive: ctx.engine.backend.ResolvePrimitive(value, part), Value: value}
	}
}
