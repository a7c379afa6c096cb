// Package plots is the optional plotting-library integration. A Plot is
// the rendered form of an abstract plotting element: a top-level state
// model plus a table of named handle models (glyphs, ranges, sources)
// exposed for linking. The Integration records which plots were rendered
// for which abstract elements per document and feeds that mapping into
// the link resolution pass.
package plots

import (
	"sync"

	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// Plot is the rendered form of one abstract plotting element.
type Plot struct {
	state   *model.Model
	handles map[string]*model.Model
}

var _ links.PlotHandle = (*Plot)(nil)

// NewPlot creates a plot with the given top-level state model.
func NewPlot(state *model.Model) *Plot {
	return &Plot{
		state:   state,
		handles: make(map[string]*model.Model),
	}
}

// AddHandle exposes a named auxiliary model for linking.
func (p *Plot) AddHandle(name string, m *model.Model) {
	p.handles[name] = m
}

// StateModel returns the plot's top-level model.
func (p *Plot) StateModel() *model.Model { return p.state }

// Handles returns the plot's named handle models.
func (p *Plot) Handles() map[string]*model.Model { return p.handles }

// Integration tracks rendered plots per document and implements the
// expansion step of the link resolution pass.
type Integration struct {
	mu sync.Mutex
	// rendered maps document root ref -> abstract element -> plots.
	rendered map[string]map[any][]*Plot
}

var _ links.PlotIntegration = (*Integration)(nil)

// NewIntegration creates an empty integration.
func NewIntegration() *Integration {
	return &Integration{rendered: make(map[string]map[any][]*Plot)}
}

// Record registers a plot rendered for an abstract element in the given
// document.
func (i *Integration) Record(rootRef string, element any, p *Plot) {
	i.mu.Lock()
	defer i.mu.Unlock()
	byElement, ok := i.rendered[rootRef]
	if !ok {
		byElement = make(map[any][]*Plot)
		i.rendered[rootRef] = byElement
	}
	byElement[element] = append(byElement[element], p)
}

// Forget discards the plots recorded for a document. Called when the
// owning session closes.
func (i *Integration) Forget(rootRef string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.rendered, rootRef)
}

// ModelMap returns the abstract-element-to-plot mapping for a document.
func (i *Integration) ModelMap(rootView *view.Element, rootModel *model.Model) map[any][]links.PlotHandle {
	if rootModel == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make(map[any][]links.PlotHandle)
	for element, plotList := range i.rendered[rootModel.Ref()] {
		handles := make([]links.PlotHandle, len(plotList))
		for idx, p := range plotList {
			handles[idx] = p
		}
		out[element] = handles
	}
	return out
}

// PlotFor resolves the first plot rendered for a value in a document.
func (i *Integration) PlotFor(rootModel *model.Model, v any) (links.PlotHandle, bool) {
	if rootModel == nil {
		return nil, false
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	plotList := i.rendered[rootModel.Ref()][v]
	if len(plotList) == 0 {
		return nil, false
	}
	return plotList[0], true
}
