// Package view implements the user-facing element tree a dashboard is
// declared with. Elements are the link endpoints user code works with;
// at render time each element is materialized into one rendered model
// per document, and the element keeps the lookup table from document
// ref to its model.
package view
