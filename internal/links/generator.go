package links

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/model"
)

// Spec addresses a property on a resolved model: Prefix is the dotted
// path to a nested sub-model (empty when addressing the model itself),
// Leaf is the property name.
type Spec struct {
	Prefix string
	Leaf   string
}

// SpecTriple pairs a source spec with a target spec and an optional
// explicit code snippet. An empty Code derives the snippet from the
// generator.
type SpecTriple struct {
	Source Spec
	Target Spec
	Code   string
}

// Generator supplies the type-specific strategy for emitting one
// declaration: how declarations expand to spec triples, what triggers
// the callback, the default code, and any one-time model setup.
type Generator interface {
	// Validate checks type-specific preconditions on the declaration.
	Validate(ctx context.Context, d Declaration) error
	// Specs expands the declaration into spec triples.
	Specs(ctx context.Context, d Declaration, source, target Endpoint) ([]SpecTriple, error)
	// Triggers returns the property-change names and event names the
	// emitted callback fires on.
	Triggers(d Declaration, src Spec) (changes, events []string)
	// Code derives the snippet when a triple carries none.
	Code(d Declaration, srcProp, tgtProp string) string
	// InitializeModels performs one-time synchronization between the
	// resolved models before the callback is attached.
	InitializeModels(ctx context.Context, d Declaration, srcModel *model.Model, srcProp string, tgtModel *model.Model, tgtProp string) error
	// ProcessReferences adjusts the assembled reference map in place.
	ProcessReferences(refs map[string]any)
}

// Binding is the result of emitting one (declaration, source, target)
// triple: the resolved models plus the callbacks attached to the source
// model. Callbacks is empty when the dedup guard skipped every spec.
type Binding struct {
	Declaration Declaration
	SourceModel *model.Model
	TargetModel *model.Model
	Callbacks   []*model.CustomJS
}

// emit resolves one declaration against the rendered model tree and
// attaches its callbacks. Failures of a single spec triple are logged
// and skipped; the remaining triples still emit.
func (r *Registry) emit(ctx context.Context, root *model.Model, d Declaration, src, tgt Endpoint, overrides map[string]Endpoint, g Generator) (*Binding, error) {
	if err := g.Validate(ctx, d); err != nil {
		return nil, err
	}
	triples, err := g.Specs(ctx, d, src, tgt)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	binding := &Binding{Declaration: d}
	for _, triple := range triples {
		if err := r.emitTriple(ctx, root, d, src, tgt, triple, overrides, g, binding); err != nil {
			logger.Warn("Skipping link callback emission.", "source", triple.Source.Leaf, "error", err)
		}
	}
	return binding, nil
}

func (r *Registry) emitTriple(ctx context.Context, root *model.Model, d Declaration, src, tgt Endpoint, triple SpecTriple, overrides map[string]Endpoint, g Generator, binding *Binding) error {
	srcModel, err := src.resolveModel(root, triple.Source.Prefix)
	if err != nil {
		return fmt.Errorf("resolve source model: %w", err)
	}
	if srcModel == nil {
		return fmt.Errorf("source does not resolve to a model")
	}
	binding.SourceModel = srcModel

	// Dedup guard: the same declaration already emitted onto this model
	// under this triple's triggers during an earlier pass. Scoped per
	// trigger property so each code entry of one declaration attaches.
	changes, events := g.Triggers(d, triple.Source)
	for _, ch := range changes {
		if srcModel.HasTaggedCallbackOn(ch, d.Tag()) {
			return nil
		}
	}
	for _, ev := range events {
		if srcModel.HasTaggedEventCallbackOn(ev, d.Tag()) {
			return nil
		}
	}

	refs := map[string]any{
		"source": srcModel,
		"cb_obj": srcModel,
	}

	var tgtModel *model.Model
	if d.RequiresTarget() {
		tgtModel, err = tgt.resolveModel(root, triple.Target.Prefix)
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Target model did not resolve.", "error", err)
			tgtModel = nil
		}
		if tgtModel != nil {
			refs["target"] = tgtModel
		}
	}
	binding.TargetModel = tgtModel

	r.resolveArguments(root, d, overrides, refs)
	r.mergeHandleTables(root, d, src, tgt, refs)

	if err := g.InitializeModels(ctx, d, srcModel, triple.Source.Leaf, tgtModel, triple.Target.Leaf); err != nil {
		return err
	}
	g.ProcessReferences(refs)

	code := triple.Code
	if code == "" {
		code = g.Code(d, triple.Source.Leaf, triple.Target.Leaf)
	}

	cb := &model.CustomJS{Args: refs, Code: code, Tags: []string{d.Tag()}}
	for _, ch := range changes {
		srcModel.OnChange(ch, cb)
	}
	for _, ev := range events {
		srcModel.OnEvent(ev, cb)
	}
	binding.Callbacks = append(binding.Callbacks, cb)
	return nil
}

// resolveArguments merges declared args with per-pass overrides and
// resolves each value to a model where possible; unresolvable plain
// values pass through as literals.
func (r *Registry) resolveArguments(root *model.Model, d Declaration, overrides map[string]Endpoint, refs map[string]any) {
	merged := make(map[string]Endpoint)
	for name, value := range d.Arguments() {
		merged[name] = endpointFor(value)
	}
	for name, ep := range overrides {
		merged[name] = ep
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ep := merged[name]
		if m, err := ep.resolveModel(root, ""); err == nil && m != nil {
			refs[name] = m
			continue
		}
		if lit, ok := ep.literal(); ok {
			refs[name] = lit
		}
	}
}

// mergeHandleTables exposes the handle models of plot endpoints in the
// reference map. Source handles take a "source_" prefix when the
// declaration has a target; target handles always take "target_".
// Existing references are never overwritten.
func (r *Registry) mergeHandleTables(root *model.Model, d Declaration, src, tgt Endpoint, refs map[string]any) {
	integration := r.plotIntegration()
	if integration == nil {
		return
	}

	srcPrefix := ""
	if _, hasTarget := d.Target(); hasTarget {
		srcPrefix = "source_"
	}
	mergeHandles(refs, r.plotFor(integration, root, src), srcPrefix)
	mergeHandles(refs, r.plotFor(integration, root, tgt), "target_")
}

func (r *Registry) plotFor(integration PlotIntegration, root *model.Model, ep Endpoint) PlotHandle {
	switch ep.kind {
	case endpointPlot:
		return ep.plot
	case endpointElement, endpointValue:
		raw := ep.raw()
		if raw == nil {
			return nil
		}
		if plot, ok := integration.PlotFor(root, raw); ok {
			return plot
		}
	}
	return nil
}

func mergeHandles(refs map[string]any, plot PlotHandle, prefix string) {
	if plot == nil {
		return
	}
	handles := plot.Handles()
	names := make([]string, 0, len(handles))
	for name := range handles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := handles[name]
		if m == nil {
			continue
		}
		key := prefix + name
		if _, exists := refs[key]; !exists {
			refs[key] = m
		}
	}
}
