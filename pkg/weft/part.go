package weft

// Node is an opaque reference to a host node. The core never constructs or
// inspects nodes; only the Backend that produced a Node knows its concrete
// type (a browser element, an in-memory struct, a string-buffer position).
type Node any

// PartKind discriminates the addressable binding sites within a rendered tree.
type PartKind uint8

const (
	PartAttribute PartKind = iota // attribute on an element
	PartProperty                  // property slot with a default value
	PartLive                      // property that the host may also write (e.g. input value)
	PartEvent                     // event listener slot
	PartElement                   // whole-element spread target
	PartChildNode                 // child position anchored in a parent
	PartText                      // text run, optionally wrapped in static text
)

// String returns the string representation of the PartKind.
func (k PartKind) String() string {
	switch k {
	case PartAttribute:
		return "Attribute"
	case PartProperty:
		return "Property"
	case PartLive:
		return "Live"
	case PartEvent:
		return "Event"
	case PartElement:
		return "Element"
	case PartChildNode:
		return "ChildNode"
	case PartText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Part identifies exactly one binding site. Parts are immutable once created:
// a template instantiation or a spread resolution creates them, and they die
// with the owning fragment. Exactly one Binding occupies a Part at a time.
type Part struct {
	Kind PartKind

	// Node is the host node the part addresses. For ChildNode parts this is
	// the parent node; for all others it is the element itself.
	Node Node

	// Name is the attribute, property, or event name. Empty for Element,
	// ChildNode, and Text parts.
	Name string

	// DefaultValue is the value restored on rollback for Property and Live
	// parts.
	DefaultValue any

	// AnchorNode marks the position within the parent for ChildNode parts.
	// Bound content is placed immediately before the anchor.
	AnchorNode Node

	// PrecedingText and FollowingText are the static runs surrounding a
	// Text part's dynamic content.
	PrecedingText string
	FollowingText string
}

// String returns a short description of the part for error messages.
func (p Part) String() string {
	if p.Name != "" {
		return p.Kind.String() + "(" + p.Name + ")"
	}
	return p.Kind.String()
}
