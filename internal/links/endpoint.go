package links

import (
	"fmt"
	"reflect"
	"weak"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/propath"
	"github.com/vk/dashlink/internal/view"
)

// PlotHandle is the capability surface of an element-plot produced by a
// secondary plotting integration. State is the plot's top-level model;
// Handles names the auxiliary models the plot exposes for linking.
type PlotHandle interface {
	StateModel() *model.Model
	Handles() map[string]*model.Model
}

type endpointKind int

const (
	endpointNone endpointKind = iota
	endpointElement
	endpointModel
	endpointPlot
	endpointValue
)

// Endpoint is a resolvable reference to one end of a link: a view
// element, an already rendered model, a plot handle from a secondary
// integration, or an opaque value. View elements are held weakly so an
// endpoint never extends its element's lifetime.
type Endpoint struct {
	kind   endpointKind
	elemID string
	elem   weak.Pointer[view.Element]
	model  *model.Model
	plot   PlotHandle
	value  any
}

// ElementOf references a view element.
func ElementOf(e *view.Element) Endpoint {
	if e == nil {
		return Endpoint{}
	}
	return Endpoint{kind: endpointElement, elemID: e.ID(), elem: weak.Make(e)}
}

// ModelOf references a rendered model directly.
func ModelOf(m *model.Model) Endpoint {
	if m == nil {
		return Endpoint{}
	}
	return Endpoint{kind: endpointModel, model: m}
}

// PlotOf references a secondary-integration plot handle.
func PlotOf(p PlotHandle) Endpoint {
	if p == nil {
		return Endpoint{}
	}
	return Endpoint{kind: endpointPlot, plot: p}
}

// ValueOf wraps an opaque value. Opaque endpoints only resolve through
// an active plot integration; otherwise they pass through as literals.
func ValueOf(v any) Endpoint {
	if v == nil {
		return Endpoint{}
	}
	return Endpoint{kind: endpointValue, value: v}
}

// endpointFor wraps an arbitrary argument value in its endpoint variant.
func endpointFor(v any) Endpoint {
	switch val := v.(type) {
	case Endpoint:
		return val
	case *view.Element:
		return ElementOf(val)
	case *model.Model:
		return ModelOf(val)
	case PlotHandle:
		return PlotOf(val)
	default:
		return ValueOf(v)
	}
}

// IsZero reports whether the endpoint references nothing.
func (e Endpoint) IsZero() bool { return e.kind == endpointNone }

// Element dereferences an element endpoint. ok is false for other
// endpoint kinds and for elements that have been destroyed.
func (e Endpoint) Element() (*view.Element, bool) {
	if e.kind != endpointElement {
		return nil, false
	}
	el := e.elem.Value()
	return el, el != nil
}

// identity returns a stable registry/linkable identity for the endpoint.
// Opaque values have no identity.
func (e Endpoint) identity() (string, bool) {
	switch e.kind {
	case endpointElement:
		return "element:" + e.elemID, true
	case endpointModel:
		return "model:" + e.model.Ref(), true
	case endpointPlot:
		if s := e.plot.StateModel(); s != nil {
			return "plot:" + s.Ref(), true
		}
		return "", false
	default:
		return "", false
	}
}

// raw returns the wrapped object for integration lookups.
func (e Endpoint) raw() any {
	switch e.kind {
	case endpointElement:
		el, _ := e.Element()
		if el == nil {
			return nil
		}
		return el
	case endpointModel:
		return e.model
	case endpointPlot:
		return e.plot
	case endpointValue:
		return e.value
	default:
		return nil
	}
}

// literal returns the endpoint's pass-through value for reference maps,
// if it has one.
func (e Endpoint) literal() (any, bool) {
	if e.kind == endpointValue {
		return e.value, true
	}
	return nil, false
}

// Equal reports whether two endpoints reference the same object.
func (e Endpoint) Equal(o Endpoint) bool {
	if e.kind != o.kind {
		return false
	}
	if id, ok := e.identity(); ok {
		oid, ook := o.identity()
		return ook && id == oid
	}
	if e.kind == endpointValue {
		return reflect.DeepEqual(e.value, o.value)
	}
	return e.kind == endpointNone
}

// resolveModel resolves the endpoint to a concrete model under the given
// document root, then drills down the given path prefix across nested
// models. A nil model with nil error means the endpoint does not resolve
// to a model at all (opaque values).
func (e Endpoint) resolveModel(root *model.Model, prefix string) (*model.Model, error) {
	var m *model.Model
	remainder := prefix

	switch e.kind {
	case endpointPlot:
		if prefix == "" {
			return e.plot.StateModel(), nil
		}
		// The first path segment names a plot handle; the rest is an
		// attribute drill-down on the returned model.
		first, rest := splitFirst(prefix)
		handle, ok := e.plot.Handles()[first]
		if !ok {
			return nil, fmt.Errorf("plot has no handle %q", first)
		}
		m, remainder = handle, rest
	case endpointElement:
		el := e.elem.Value()
		if el == nil {
			return nil, fmt.Errorf("element %s has been destroyed", e.elemID)
		}
		rendered, ok := el.Model(root.Ref())
		if !ok {
			return nil, fmt.Errorf("element %q has no rendered model in this document", el.Name())
		}
		m = rendered
	case endpointModel:
		m = e.model
	default:
		return nil, nil
	}

	if remainder == "" {
		return m, nil
	}
	p, err := propath.Parse(remainder)
	if err != nil {
		return nil, err
	}
	return m.Resolve(p)
}

// splitFirst divides a dotted path into its first segment and the rest.
func splitFirst(raw string) (first, rest string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
