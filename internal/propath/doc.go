// Package propath defines the structured representation of a dotted
// property path (e.g. `axis.start` or `renderers[0].glyph`) used to
// address properties and nested sub-models on a rendered model.
//
// A path is parsed once into segments and then walked segment by
// segment during link resolution. The final segment names the leaf
// property; everything before it addresses nested models.
package propath
