package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/dashlink/internal/propath"
)

// Watcher observes server-side property changes on a model.
type Watcher func(m *Model, prop string, value cty.Value)

// Model is a single node in a rendered document tree.
type Model struct {
	ref      string
	typeName string

	schema map[string]cty.Type
	props  map[string]cty.Value

	children   map[string]*Model
	childLists map[string][]*Model

	tags []string

	changeCallbacks map[string][]*CustomJS
	eventCallbacks  map[string][]*CustomJS

	watchers []Watcher
}

// New creates a model of the given type with a fresh ref.
func New(typeName string) *Model {
	return &Model{
		ref:             uuid.NewString(),
		typeName:        typeName,
		schema:          make(map[string]cty.Type),
		props:           make(map[string]cty.Value),
		children:        make(map[string]*Model),
		childLists:      make(map[string][]*Model),
		changeCallbacks: make(map[string][]*CustomJS),
		eventCallbacks:  make(map[string][]*CustomJS),
	}
}

// Ref returns the stable per-document identity of the model.
func (m *Model) Ref() string { return m.ref }

// TypeName returns the model's type name, e.g. "Slider" or "Line".
func (m *Model) TypeName() string { return m.typeName }

// Declare registers a property with its declared type. Values assigned to
// the property must be convertible to that type.
func (m *Model) Declare(prop string, ty cty.Type) {
	m.schema[prop] = ty
	if _, ok := m.props[prop]; !ok {
		m.props[prop] = cty.NullVal(ty)
	}
}

// DeclaredType returns the declared type of a property, if any.
func (m *Model) DeclaredType(prop string) (cty.Type, bool) {
	ty, ok := m.schema[prop]
	return ty, ok
}

// Get returns the current value of a data property.
func (m *Model) Get(prop string) (cty.Value, bool) {
	v, ok := m.props[prop]
	return v, ok
}

// Set assigns a data property after validating the value against the
// property's declared type. Undeclared properties accept any value.
func (m *Model) Set(prop string, value cty.Value) error {
	if ty, ok := m.schema[prop]; ok {
		converted, err := convert.Convert(value, ty)
		if err != nil {
			return fmt.Errorf("model %s: cannot set %q: %w", m.typeName, prop, err)
		}
		value = converted
	}
	m.props[prop] = value
	for _, w := range m.watchers {
		w(m, prop, value)
	}
	return nil
}

// Props returns a copy of the current data property values.
func (m *Model) Props() map[string]cty.Value {
	out := make(map[string]cty.Value, len(m.props))
	for k, v := range m.props {
		out[k] = v
	}
	return out
}

// Watch registers a server-side observer for property changes.
func (m *Model) Watch(w Watcher) {
	m.watchers = append(m.watchers, w)
}

// SetChild attaches a nested sub-model under the given attribute name.
func (m *Model) SetChild(name string, child *Model) {
	m.children[name] = child
}

// Child returns the nested sub-model stored under name.
func (m *Model) Child(name string) (*Model, bool) {
	c, ok := m.children[name]
	return c, ok
}

// AppendChild appends a sub-model to the list stored under name.
func (m *Model) AppendChild(name string, child *Model) {
	m.childLists[name] = append(m.childLists[name], child)
}

// Children returns a copy of the named sub-model table.
func (m *Model) Children() map[string]*Model {
	out := make(map[string]*Model, len(m.children))
	for k, v := range m.children {
		out[k] = v
	}
	return out
}

// ChildLists returns a copy of the list-valued sub-model table.
func (m *Model) ChildLists() map[string][]*Model {
	out := make(map[string][]*Model, len(m.childLists))
	for k, v := range m.childLists {
		out[k] = append([]*Model(nil), v...)
	}
	return out
}

// ChildAt returns the idx-th sub-model of the list stored under name.
func (m *Model) ChildAt(name string, idx int) (*Model, bool) {
	list, ok := m.childLists[name]
	if !ok || idx < 0 || idx >= len(list) {
		return nil, false
	}
	return list[idx], true
}

// Resolve walks a property path across nested sub-models and returns the
// addressed model. Every segment must address a sub-model; leaf data
// properties are not resolvable to a model.
func (m *Model) Resolve(p *propath.Path) (*Model, error) {
	cur := m
	for _, seg := range p.Segments {
		var next *Model
		var ok bool
		if seg.HasIndex() {
			next, ok = cur.ChildAt(seg.Name, seg.Index)
		} else {
			next, ok = cur.Child(seg.Name)
		}
		if !ok {
			return nil, fmt.Errorf("model %s has no sub-model %q", cur.typeName, seg.Name)
		}
		cur = next
	}
	return cur, nil
}

// Select returns the model itself plus every descendant matching the
// predicate, in depth-first document order. Traversal order is stable:
// named children are visited in sorted name order, list children in
// insertion order.
func (m *Model) Select(pred func(*Model) bool) []*Model {
	var out []*Model
	m.walk(func(node *Model) {
		if pred == nil || pred(node) {
			out = append(out, node)
		}
	})
	return out
}

func (m *Model) walk(visit func(*Model)) {
	visit(m)

	names := make([]string, 0, len(m.children))
	for name := range m.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.children[name].walk(visit)
	}

	listNames := make([]string, 0, len(m.childLists))
	for name := range m.childLists {
		listNames = append(listNames, name)
	}
	sort.Strings(listNames)
	for _, name := range listNames {
		for _, child := range m.childLists[name] {
			child.walk(visit)
		}
	}
}

// AddTag appends an identity tag to the model.
func (m *Model) AddTag(tag string) {
	m.tags = append(m.tags, tag)
}

// Tags returns the model's identity tags.
func (m *Model) Tags() []string { return m.tags }
