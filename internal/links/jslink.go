package links

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/propath"
)

// JSCallbackGenerator emits declarations carrying explicit JS snippets:
// one callback per code entry, triggered by the addressed source
// property.
type JSCallbackGenerator struct{}

var _ Generator = (*JSCallbackGenerator)(nil)

// Validate has no preconditions for plain JS callbacks.
func (g *JSCallbackGenerator) Validate(ctx context.Context, d Declaration) error { return nil }

// Specs expands each code entry into a spec triple. Entries emit in
// sorted source-path order so repeated passes are deterministic.
func (g *JSCallbackGenerator) Specs(ctx context.Context, d Declaration, source, target Endpoint) ([]SpecTriple, error) {
	snippets := d.CodeSnippets()
	paths := make([]string, 0, len(snippets))
	for path := range snippets {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := make([]SpecTriple, 0, len(paths))
	for _, path := range paths {
		out = append(out, SpecTriple{
			Source: specFor(path, source),
			Code:   snippets[path],
		})
	}
	return out, nil
}

// Triggers fires the callback on changes of the leaf source property.
func (g *JSCallbackGenerator) Triggers(d Declaration, src Spec) (changes, events []string) {
	return []string{src.Leaf}, nil
}

// Code returns nothing; explicit snippets always accompany callbacks.
func (g *JSCallbackGenerator) Code(d Declaration, srcProp, tgtProp string) string { return "" }

// InitializeModels performs no setup for plain JS callbacks.
func (g *JSCallbackGenerator) InitializeModels(ctx context.Context, d Declaration, srcModel *model.Model, srcProp string, tgtModel *model.Model, tgtProp string) error {
	return nil
}

// ProcessReferences leaves the reference map unchanged.
func (g *JSCallbackGenerator) ProcessReferences(refs map[string]any) {}

// specFor splits a dotted property path into a Spec, applying the
// element's property rename table to single-segment paths.
func specFor(path string, ep Endpoint) Spec {
	prefix, leaf := propath.Split(path)
	if prefix == "" {
		if el, ok := ep.Element(); ok {
			leaf = el.RenamedProp(leaf)
		}
	}
	return Spec{Prefix: prefix, Leaf: leaf}
}

// JSLinkGenerator emits Link declarations. With explicit code it behaves
// like JSCallbackGenerator; otherwise each declared property pair
// produces a validated property bridge from source to target.
type JSLinkGenerator struct {
	JSCallbackGenerator
}

var _ Generator = (*JSLinkGenerator)(nil)

// Specs prefers explicit code entries; the declarative property mapping
// only applies when no code is set.
func (g *JSLinkGenerator) Specs(ctx context.Context, d Declaration, source, target Endpoint) ([]SpecTriple, error) {
	if len(d.CodeSnippets()) > 0 {
		return g.JSCallbackGenerator.Specs(ctx, d, source, target)
	}

	link, ok := d.(*Link)
	if !ok {
		return nil, fmt.Errorf("property mapping requires a Link declaration, got %T", d)
	}

	properties := link.Properties()
	srcPaths := make([]string, 0, len(properties))
	for path := range properties {
		srcPaths = append(srcPaths, path)
	}
	sort.Strings(srcPaths)

	out := make([]SpecTriple, 0, len(srcPaths))
	for _, srcPath := range srcPaths {
		out = append(out, SpecTriple{
			Source: specFor(srcPath, source),
			Target: specFor(properties[srcPath], target),
		})
	}
	return out, nil
}

// InitializeModels copies the current source property value onto the
// target so both sides agree before the first client-side change. A
// link whose target did not resolve and that carries no fallback code
// cannot emit anything useful and fails the triple.
func (g *JSLinkGenerator) InitializeModels(ctx context.Context, d Declaration, srcModel *model.Model, srcProp string, tgtModel *model.Model, tgtProp string) error {
	if tgtModel == nil {
		if len(d.CodeSnippets()) == 0 {
			return ErrUnresolvedTarget
		}
		return nil
	}
	if srcProp == "" || tgtProp == "" {
		return nil
	}
	value, ok := srcModel.Get(srcProp)
	if !ok {
		return nil
	}
	if err := tgtModel.Set(tgtProp, value); err != nil {
		// Initial sync mirrors the client-side soft failure: warn and
		// leave the target value unchanged, the callback still emits.
		ctxlog.FromContext(ctx).Warn("Could not initialize target property from source.", "property", tgtProp, "error", err)
	}
	return nil
}

// ProcessReferences strips the target_ prefix from plot handle
// references. On collision the unprefixed reference wins and the
// prefixed entry is dropped.
func (g *JSLinkGenerator) ProcessReferences(refs map[string]any) {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "target" || !strings.HasPrefix(name, "target_") {
			continue
		}
		stripped := strings.TrimPrefix(name, "target_")
		if _, exists := refs[stripped]; exists {
			delete(refs, name)
			continue
		}
		refs[stripped] = refs[name]
		delete(refs, name)
	}
}

// Code derives the validated property bridge: read the source property,
// validate it against the target property's declared type, abort with a
// client-side warning on failure, assign on success.
func (g *JSLinkGenerator) Code(d Declaration, srcProp, tgtProp string) string {
	return fmt.Sprintf(
		"value = source[%s];"+
			"try { property = target.properties[%s];"+
			"if (property !== undefined) { property.validate(value); } }"+
			"catch(err) { console.log('WARNING: Could not set %s on target, raised error: ' + err); return; }"+
			"target[%s] = value",
		jsQuote(srcProp), jsQuote(tgtProp), tgtProp, jsQuote(tgtProp))
}

// jsQuote renders a string as a single-quoted JS string literal.
func jsQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
