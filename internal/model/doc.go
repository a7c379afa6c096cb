// Package model implements the rendered model tree that a dashboard
// document is materialized into. Each Model carries a stable per-document
// ref, a set of typed data properties, optional nested sub-models, and
// the JS callbacks attached to it during link resolution.
//
// Property values use the cty type system. Setting a property validates
// the value against its declared type before storing it, which is the
// server-side counterpart of the validation bridge emitted into JS
// callbacks.
//
// Models are not synchronized; a document and all models under it belong
// to a single session and callers serialize access per session.
package model
