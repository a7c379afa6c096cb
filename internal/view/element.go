package view

import (
	"github.com/google/uuid"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/propath"
)

// Element is a single node in a view tree. Name addresses the element in
// manifests and lookups; ID is its process-wide identity.
type Element struct {
	id       string
	name     string
	typeName string

	children []*Element

	// rename maps user-facing property names to the names the rendered
	// model uses, e.g. "value" -> "value_throttled".
	rename map[string]string

	// models indexes the element's rendered model per document root ref.
	models map[string]*model.Model
}

// New creates an element of the given type with the given name.
func New(typeName, name string) *Element {
	return &Element{
		id:       uuid.NewString(),
		name:     name,
		typeName: typeName,
		models:   make(map[string]*model.Model),
	}
}

// ID returns the element's process-wide identity.
func (e *Element) ID() string { return e.id }

// Name returns the element's user-assigned name.
func (e *Element) Name() string { return e.name }

// TypeName returns the element's type name, e.g. "slider".
func (e *Element) TypeName() string { return e.typeName }

// Append adds child elements.
func (e *Element) Append(children ...*Element) {
	e.children = append(e.children, children...)
}

// Children returns the element's direct children in insertion order.
func (e *Element) Children() []*Element { return e.children }

// Select returns the element itself plus every descendant matching the
// predicate, in depth-first declaration order.
func (e *Element) Select(pred func(*Element) bool) []*Element {
	var out []*Element
	e.walk(func(el *Element) {
		if pred == nil || pred(el) {
			out = append(out, el)
		}
	})
	return out
}

func (e *Element) walk(visit func(*Element)) {
	visit(e)
	for _, child := range e.children {
		child.walk(visit)
	}
}

// Find resolves a dotted name path (e.g. "sidebar.slider") to a
// descendant element. A single-segment path may also match this element
// itself.
func (e *Element) Find(p *propath.Path) (*Element, bool) {
	if p == nil || len(p.Segments) == 0 {
		return nil, false
	}
	cur := e
	segments := p.Segments
	if segments[0].Name == e.name {
		segments = segments[1:]
		if len(segments) == 0 {
			return e, true
		}
	}
	for _, seg := range segments {
		var next *Element
		for _, child := range cur.children {
			if child.name == seg.Name {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// RenameProp declares that the user-facing property maps to a different
// property name on the rendered model.
func (e *Element) RenameProp(from, to string) {
	if e.rename == nil {
		e.rename = make(map[string]string)
	}
	e.rename[from] = to
}

// RenamedProp translates a user-facing property name to its rendered
// model name, returning the input unchanged when no rename applies.
func (e *Element) RenamedProp(prop string) string {
	if renamed, ok := e.rename[prop]; ok {
		return renamed
	}
	return prop
}

// SetModel records the element's rendered model for a document root.
func (e *Element) SetModel(rootRef string, m *model.Model) {
	e.models[rootRef] = m
}

// Model returns the element's rendered model for a document root.
func (e *Element) Model(rootRef string) (*model.Model, bool) {
	m, ok := e.models[rootRef]
	return m, ok
}

// DropModels discards the rendered models recorded for a document root
// across the whole subtree. Called when the owning session is closed.
func (e *Element) DropModels(rootRef string) {
	e.walk(func(el *Element) {
		delete(el.models, rootRef)
	})
}
