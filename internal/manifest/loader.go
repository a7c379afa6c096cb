package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/fsutil"
	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/propath"
	"github.com/vk/dashlink/internal/view"
)

// Loader parses HCL link manifests and registers the declarations they
// describe against a view tree.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// linkBlock is the raw HCL form of a jslink block.
type linkBlock struct {
	Source     string            `hcl:"source"`
	Target     string            `hcl:"target"`
	Properties map[string]string `hcl:"properties,optional"`
	Code       map[string]string `hcl:"code,optional"`
	Args       hcl.Expression    `hcl:"args,optional"`
}

// callbackBlock is the raw HCL form of a jscallback block.
type callbackBlock struct {
	Source string            `hcl:"source"`
	Code   map[string]string `hcl:"code"`
	Args   hcl.Expression    `hcl:"args,optional"`
}

// fileRoot decodes all recognized top-level blocks from any file.
type fileRoot struct {
	Links     []*linkBlock     `hcl:"jslink,block"`
	Callbacks []*callbackBlock `hcl:"jscallback,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// Load discovers .hcl manifests under the given paths, decodes their
// jslink and jscallback blocks, and registers each against reg. Source
// and target attributes are element name paths resolved within root.
func (l *Loader) Load(ctx context.Context, reg *links.Registry, root *view.Element, paths ...string) ([]links.Declaration, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	parser := hclparse.NewParser()
	var decls []links.Declaration

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}

		var fr fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &fr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}

		for _, block := range fr.Links {
			decl, err := l.registerLink(reg, root, block)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", file, err)
			}
			decls = append(decls, decl)
		}
		for _, block := range fr.Callbacks {
			decl, err := l.registerCallback(reg, root, block)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", file, err)
			}
			decls = append(decls, decl)
		}
	}

	logger.Debug("Manifest loading complete.", "declarations", len(decls))
	return decls, nil
}

func (l *Loader) registerLink(reg *links.Registry, root *view.Element, block *linkBlock) (links.Declaration, error) {
	source, err := lookupElement(root, block.Source)
	if err != nil {
		return nil, err
	}
	target, err := lookupElement(root, block.Target)
	if err != nil {
		return nil, err
	}
	args, err := decodeArgs(block.Args)
	if err != nil {
		return nil, err
	}
	return links.NewLink(reg, links.ElementOf(source), links.ElementOf(target), links.LinkConfig{
		Properties: block.Properties,
		Code:       block.Code,
		Args:       args,
	})
}

func (l *Loader) registerCallback(reg *links.Registry, root *view.Element, block *callbackBlock) (links.Declaration, error) {
	source, err := lookupElement(root, block.Source)
	if err != nil {
		return nil, err
	}
	args, err := decodeArgs(block.Args)
	if err != nil {
		return nil, err
	}
	return links.NewCallback(reg, links.ElementOf(source), links.CallbackConfig{
		Code: block.Code,
		Args: args,
	})
}

// lookupElement resolves an element name path like "column.slider"
// within the root view tree.
func lookupElement(root *view.Element, ref string) (*view.Element, error) {
	p, err := propath.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid element path %q: %w", ref, err)
	}
	el, ok := root.Find(p)
	if !ok {
		return nil, fmt.Errorf("no element %q in view tree", ref)
	}
	return el, nil
}

// decodeArgs evaluates the args attribute, if present, into a name to
// value table. Values stay as cty values and are resolved to models or
// literals at emission time.
func decodeArgs(expr hcl.Expression) (map[string]any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate args: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("args must be an object, got %s", val.Type().FriendlyName())
	}
	args := make(map[string]any)
	for name, v := range val.AsValueMap() {
		args[name] = v
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
