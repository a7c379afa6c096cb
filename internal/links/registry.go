package links

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// GeneratorFactory produces a fresh Generator for one declaration
// resolution.
type GeneratorFactory func() Generator

// PlotIntegration is the optional capability supplied by a secondary
// plotting library. ModelMap maps abstract plot-element values to the
// concrete plot handles rendered for them under the given root; PlotFor
// resolves the single plot rendered for a value.
type PlotIntegration interface {
	ModelMap(rootView *view.Element, rootModel *model.Model) map[any][]PlotHandle
	PlotFor(rootModel *model.Model, v any) (PlotHandle, bool)
}

// Registry holds the registered declarations for one application
// instance, keyed by source identity, plus the generator dispatch table
// used to emit them.
//
// Add/Remove may be called from handler goroutines; entry access is
// guarded by a single mutex. A resolution pass only reads the registry.
type Registry struct {
	mu       sync.Mutex
	entries  map[string][]Declaration
	cleanups map[string]struct{}

	generators  map[reflect.Type]GeneratorFactory
	integration PlotIntegration
}

// NewRegistry creates a registry with the shipped generators registered
// for Callback and Link declarations.
func NewRegistry() *Registry {
	r := &Registry{
		entries:    make(map[string][]Declaration),
		cleanups:   make(map[string]struct{}),
		generators: make(map[reflect.Type]GeneratorFactory),
	}
	r.RegisterGenerator(reflect.TypeOf(&Callback{}), func() Generator { return &JSCallbackGenerator{} })
	r.RegisterGenerator(reflect.TypeOf(&Link{}), func() Generator { return &JSLinkGenerator{} })
	return r
}

// RegisterGenerator binds a declaration type to the generator emitting
// it. Every declaration type must be bound before the first resolution
// pass that meets it.
func (r *Registry) RegisterGenerator(declType reflect.Type, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[declType] = factory
}

// SetIntegration installs the optional plot integration. A nil
// integration disables the expansion step.
func (r *Registry) SetIntegration(pi PlotIntegration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integration = pi
}

// Add registers a declaration under its source. Registration is
// idempotent: if an equivalent declaration is already present the call
// is a no-op. Reports whether the declaration was appended.
func (r *Registry) Add(d Declaration) bool {
	id, ok := d.Source().identity()
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries[id] {
		if existing == d || sameDeclaration(existing, d) {
			return false
		}
	}
	r.entries[id] = append(r.entries[id], d)
	r.pruneOnCollect(d.Source(), id)
	return true
}

// pruneOnCollect drops a source's registry entry once the source element
// is garbage collected, so the registry never outlives the object that
// owns the links. Callers hold r.mu.
func (r *Registry) pruneOnCollect(source Endpoint, id string) {
	if _, done := r.cleanups[id]; done {
		return
	}
	el, ok := source.Element()
	if !ok {
		return
	}
	r.cleanups[id] = struct{}{}
	runtime.AddCleanup(el, func(sourceID string) {
		r.Drop(sourceID)
	}, id)
}

// Remove deletes this exact declaration instance from its source's
// list, preserving the order of the remaining entries. Removing an
// absent declaration is a silent no-op.
func (r *Registry) Remove(d Declaration) {
	id, ok := d.Source().identity()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[id]
	for i, existing := range list {
		if existing == d {
			r.entries[id] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Drop removes every declaration registered under the given source
// identity. Used when the owning object is destroyed.
func (r *Registry) Drop(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sourceID)
	delete(r.cleanups, sourceID)
}

// DropElement removes every declaration registered under the given view
// element.
func (r *Registry) DropElement(e *view.Element) {
	if e == nil {
		return
	}
	id, ok := ElementOf(e).identity()
	if !ok {
		return
	}
	r.Drop(id)
}

// Registered returns a copy of the declarations registered under the
// given source endpoint in insertion order.
func (r *Registry) Registered(source Endpoint) []Declaration {
	id, ok := source.identity()
	if !ok {
		return nil
	}
	return r.declarationsFor(id)
}

func (r *Registry) declarationsFor(id string) []Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[id]
	out := make([]Declaration, len(list))
	copy(out, list)
	return out
}

func (r *Registry) generatorFor(d Declaration) (GeneratorFactory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.generators[reflect.TypeOf(d)]
	return f, ok
}

func (r *Registry) plotIntegration() PlotIntegration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.integration
}
