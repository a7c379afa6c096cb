package links

import (
	"context"
	"fmt"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// triple is one resolvable (declaration, source, target) combination
// discovered during a pass.
type triple struct {
	decl Declaration
	src  Endpoint
	tgt  Endpoint
}

// ProcessCallbacks is the pre-processing hook invoked by a renderer
// before finalizing a document. It resolves every registered declaration
// reachable from the root view against the rendered model tree and
// emits the callback bindings. A nil root model means nothing has been
// rendered yet and the pass is a no-op.
//
// The pass only reads the registry; re-running it over an unchanged
// registry and document attaches no additional callbacks.
func (r *Registry) ProcessCallbacks(ctx context.Context, rootView *view.Element, rootModel *model.Model) ([]*Binding, error) {
	if rootModel == nil {
		return nil, nil
	}

	// The linkable set: every view element under the root plus every
	// rendered model under the root model, in stable document order.
	var order []string
	endpoints := make(map[string]Endpoint)
	addLinkable := func(ep Endpoint) {
		id, ok := ep.identity()
		if !ok {
			return
		}
		if _, seen := endpoints[id]; !seen {
			order = append(order, id)
			endpoints[id] = ep
		}
	}
	if rootView != nil {
		for _, el := range rootView.Select(nil) {
			addLinkable(ElementOf(el))
		}
	}
	for _, m := range rootModel.Select(nil) {
		addLinkable(ModelOf(m))
	}
	if len(order) == 0 {
		return nil, nil
	}

	var found []triple
	for _, id := range order {
		src := endpoints[id]
		for _, d := range r.declarationsFor(id) {
			tgt, _ := d.Target()
			if !d.RequiresTarget() {
				found = append(found, triple{decl: d, src: src, tgt: tgt})
				continue
			}
			tgtID, ok := tgt.identity()
			if !ok {
				continue
			}
			if _, linkable := endpoints[tgtID]; linkable {
				found = append(found, triple{decl: d, src: src, tgt: tgt})
			}
		}
	}

	// Optional secondary-integration expansion: abstract plot-element
	// targets and args expand to the concrete plots rendered for them.
	// Purely additive.
	overrides := make(map[string]map[string]Endpoint)
	if integration := r.plotIntegration(); integration != nil {
		modelMap := integration.ModelMap(rootView, rootModel)
		if len(modelMap) > 0 {
			for _, id := range order {
				src := endpoints[id]
				for _, d := range r.declarationsFor(id) {
					if tgt, ok := d.Target(); ok {
						for _, plot := range modelMap[tgt.raw()] {
							found = append(found, triple{decl: d, src: src, tgt: PlotOf(plot)})
						}
					}
					for name, value := range d.Arguments() {
						for _, plot := range modelMap[endpointFor(value).raw()] {
							if overrides[d.Tag()] == nil {
								overrides[d.Tag()] = make(map[string]Endpoint)
							}
							overrides[d.Tag()][name] = PlotOf(plot)
						}
					}
				}
			}
		}
	}

	logger := ctxlog.FromContext(ctx)
	var bindings []*Binding
	for _, tr := range found {
		factory, ok := r.generatorFor(tr.decl)
		if !ok {
			return bindings, fmt.Errorf("%w: %T", ErrUnregisteredCallback, tr.decl)
		}
		binding, err := r.emit(ctx, rootModel, tr.decl, tr.src, tr.tgt, overrides[tr.decl.Tag()], factory())
		if err != nil {
			logger.Warn("Skipping link declaration.", "error", err)
			continue
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}
