// Package memhost is an in-memory host backend for the weft runtime. It
// provides a DOM-like document tree, a deterministic scheduler backend whose
// callbacks run only when the caller drains them, identity-stable primitive
// directives for every part kind, and a simple element template provider
// with hydration support.
//
// Every mutation of the attached tree is recorded in the document's write
// log, tagged with the commit phase it ran in. Tests assert on the log to
// prove properties like "a reorder moved two nodes and wrote nothing else";
// the serve transport streams the same log to clients.
//
// The backend is the reference host: single-goroutine, no real event loop.
// RequestCallback queues work and RunCallbacks drains it highest-priority
// first, so a test can schedule several updates and observe exactly one
// coalesced flush.
package memhost
