package weft

// ErrorHandler receives a render-time application error caught by a boundary.
// Calling rethrow delegates the error to the next boundary up the chain; if
// none remains, the error surfaces from the flush call.
type ErrorHandler func(err error, rethrow func())

// Scope is a parent-chained structure carrying error boundaries, contextual
// key-value bindings, and the hydration cursor for its component subtree.
// Children hold an immutable reference to their parent, never the reverse;
// lookup walks up the chain with nearest-ancestor-wins semantics.
type Scope struct {
	parent *Scope

	// values are the contextual bindings set at this level. Lazily
	// allocated; most scopes never carry values.
	values map[any]any

	// handler is the error boundary registered at this level, if any.
	handler ErrorHandler

	// cursor is the hydration DOM-walk state, owned by the backend.
	cursor any
}

// NewScope creates a child scope of parent. A nil parent creates a root scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent}
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// SetValue binds key to value at this scope level. Descendant lookups see it;
// siblings and ancestors do not.
func (s *Scope) SetValue(key, value any) {
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Value looks key up the parent chain. The nearest ancestor that set the key
// wins.
func (s *Scope) Value(key any) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.values != nil {
			if v, ok := sc.values[key]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// SetErrorHandler registers an error boundary at this scope level.
func (s *Scope) SetErrorHandler(h ErrorHandler) {
	s.handler = h
}

// SetHydrationCursor stores the backend's hydration walk state for this
// subtree.
func (s *Scope) SetHydrationCursor(cursor any) {
	s.cursor = cursor
}

// HydrationCursor returns the nearest hydration cursor up the chain, or nil
// when not hydrating.
func (s *Scope) HydrationCursor() any {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.cursor != nil {
			return sc.cursor
		}
	}
	return nil
}

// catchError routes err to the nearest boundary up the chain. It returns nil
// if a boundary absorbed the error, or the error that escaped past the last
// boundary. Protocol violations are never absorbed.
func (s *Scope) catchError(err error) error {
	if IsProtocolError(err) {
		return err
	}

	// Collect the boundary chain nearest-first.
	var handlers []ErrorHandler
	for sc := s; sc != nil; sc = sc.parent {
		if sc.handler != nil {
			handlers = append(handlers, sc.handler)
		}
	}
	if len(handlers) == 0 {
		return err
	}

	escaped := err
	var deliver func(i int) error
	deliver = func(i int) error {
		if i >= len(handlers) {
			return escaped
		}
		absorbed := true
		handlers[i](err, func() {
			absorbed = false
		})
		if absorbed {
			return nil
		}
		return deliver(i + 1)
	}
	return deliver(0)
}
