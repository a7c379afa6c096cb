// Package links implements the link registry and callback resolver.
//
// User code declares Callbacks ("when property P changes on source S,
// run JS code C") and Links (Callbacks with a target model the code
// affects). Declarations live in a Registry keyed by the identity of
// their source; before a document is finalized the renderer invokes
// Registry.ProcessCallbacks with the root view element and root model,
// which resolves every registered declaration against the concrete
// rendered model tree and attaches deduplicated JS callback bindings.
//
// Emission is pluggable: a generator is registered per declaration type
// and supplies the spec expansion, trigger set, and default JS code for
// that type. The shipped generators emit plain JS callbacks and
// validated property bridges.
package links
