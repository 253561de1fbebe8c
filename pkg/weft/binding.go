package weft

import "reflect"

// BindingStatus tracks whether a commit or rollback is outstanding for a
// binding. A binding moves to CommitPending when connect/bind changed its
// pending state, and to RollbackPending when it is disconnected; the commit
// step returns it to Idle.
type BindingStatus uint8

const (
	StatusIdle BindingStatus = iota
	StatusCommitPending
	StatusRollbackPending
)

// String returns the string representation of the BindingStatus.
func (s BindingStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCommitPending:
		return "commit-pending"
	case StatusRollbackPending:
		return "rollback-pending"
	default:
		return "unknown"
	}
}

// Binding is the stateful connector between one value and one Part. It owns
// the pending value, the last committed value, and its lifecycle status.
//
// The five-phase lifecycle:
//
//	Connect    first attach; may recurse into child slots
//	Bind       swap the pending value without re-attaching
//	Disconnect detach, reversible until the next commit
//	Commit     apply the pending value to the host
//	Rollback   undo the last commit; idempotent, a no-op with no prior commit
//
// Commit is only called after a Connect/Bind that actually changed pending
// state; bindings track dirtiness so commit stays idempotent.
type Binding interface {
	// Directive returns the directive that produced this binding. Slot
	// reconciliation compares it by identity to decide rebind vs. swap.
	Directive() Directive

	// Part returns the binding site this binding occupies.
	Part() Part

	// ShouldBind reports whether newValue differs from the committed value
	// under the binding's equality semantics. False short-circuits the
	// whole bind/commit path; it is the primary performance lever.
	ShouldBind(newValue any) bool

	// Bind stores newValue as pending.
	Bind(newValue any)

	// Connect attaches the binding, resolving child slots as needed.
	Connect(ctx *UpdateContext) error

	// Disconnect detaches the binding. The matching Rollback restores the
	// host; until then no further commits may target the part.
	Disconnect(ctx *UpdateContext)

	// Commit applies the pending value to the host.
	Commit(ctx *CommitContext)

	// Rollback undoes the last commit. Safe to call with no prior commit.
	Rollback(ctx *CommitContext)
}

// shallowEqual reports element-wise identity of two dependency slices.
// A nil slice never equals anything (callers treat nil as "always changed").
func shallowEqual(a, b []any) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// valueEqual is the identity comparison used for dependency arrays, reducer
// no-op detection, and primitive ShouldBind checks. Comparable kinds use ==;
// everything else falls back to reflect.DeepEqual, except funcs and other
// uncomparable reference kinds which compare by pointer.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Func, reflect.Chan, reflect.Map, reflect.Slice, reflect.UnsafePointer:
		// Reference identity for function and collection values; dependency
		// arrays never compare these structurally.
		if ra.Kind() == reflect.Func {
			return ra.Pointer() == rb.Pointer()
		}
		if ra.IsNil() && rb.IsNil() {
			return true
		}
		if ra.IsNil() != rb.IsNil() {
			return false
		}
		return ra.Pointer() == rb.Pointer()
	case reflect.Ptr:
		return ra.Pointer() == rb.Pointer()
	default:
		return reflect.DeepEqual(a, b)
	}
}
