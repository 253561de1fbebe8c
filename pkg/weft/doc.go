// Package weft is a fine-grained reactive rendering runtime: it binds
// dynamic values into host trees through a directive/binding protocol,
// schedules component re-renders by priority lane, and commits mutations in
// discrete phases with rollback support.
//
// # Core Types
//
// Part is an addressable binding site; Directive turns a (value, Part) pair
// into a Binding; Slot holds one binding and reconciles new values against
// it, swapping binding types at loose positions. Components are directives
// memoized per function:
//
//	func Counter(rc *weft.RenderContext) any {
//	    count, dispatch := weft.UseReducer(rc, func(s, a int) int { return s + a }, 0)
//	    weft.UseEffect(rc, func() weft.Cleanup {
//	        log.Println("count is", count)
//	        return nil
//	    }, []any{count})
//	    _ = dispatch // passed to event bindings
//	    return count
//	}
//
// # Hooks
//
// Hook state is positional: the Nth hook call on one render must be the Nth
// hook call, of the same kind, on every later render. UseReducer defers
// state transitions into priority lanes; UseEffect, UseLayoutEffect, and
// UseInsertionEffect enqueue into the passive, layout, and mutation commit
// phases respectively.
//
// # Scheduling
//
// Each Root owns one UpdateEngine. Dirty components queue by lane with
// in-place priority escalation; a flush renders until the queue settles and
// then commits effects strictly in Mutation → Layout → Passive order.
// FlushAsync yields cooperatively between batches and phases through the
// Backend's frame budget.
//
// # Hosts
//
// The core never creates host nodes. A Backend supplies primitives for
// literal values, slot kinds for positions, scheduling callbacks, and the
// effect applicator. See package memhost for an in-memory host.
package weft
