// Package state provides the ephemeral, thread-safe session store for
// running dashboards. A session couples a view tree with the document it
// was rendered into; closing a session tears down the per-document
// model bookkeeping and drops the link registry entries owned by its
// elements, so links never outlive the views that declared them.
//
// The store uses sync.Map: sessions are independent keys written by
// connection handlers while other handlers read concurrently.
package state
