package links

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

var (
	// ErrMissingSource rejects a declaration constructed without a
	// registrable source.
	ErrMissingSource = errors.New("links: callback must define a source")
	// ErrMissingTarget rejects a target-requiring link constructed
	// without a target.
	ErrMissingTarget = errors.New("links: link must define a target")
	// ErrUnregisteredCallback is returned by a resolution pass that
	// meets a declaration type with no registered generator.
	ErrUnregisteredCallback = errors.New("links: no generator registered for callback type")
	// ErrUnresolvedTarget is raised during resolution when a
	// target-requiring link resolves no target model and supplies no
	// fallback code.
	ErrUnresolvedTarget = errors.New("links: model could not be resolved on target and no custom code was specified")
)

// Declaration is a registered link or callback. Concrete declaration
// types embed Callback; the unexported methods keep the equivalence
// contract inside this package.
type Declaration interface {
	// Source is the endpoint whose property changes trigger the callback.
	Source() Endpoint
	// Target returns the affected endpoint; ok is false for plain
	// callbacks that have no concept of a target.
	Target() (Endpoint, bool)
	// RequiresTarget reports whether resolution must produce a target.
	RequiresTarget() bool
	// Arguments are extra objects exposed to the emitted code by name.
	Arguments() map[string]any
	// CodeSnippets maps source property paths to explicit JS snippets.
	CodeSnippets() map[string]string
	// Tag is the declaration identity used for emission dedup.
	Tag() string
	// Unlink removes this exact declaration from its registry.
	Unlink()

	paramsEqual(other Declaration) bool
	self() Declaration
}

// CallbackConfig configures a Callback declaration.
type CallbackConfig struct {
	// Code maps a source property path to the JS snippet run when that
	// property changes.
	Code map[string]string
	// Args maps names to objects made available to the snippet.
	Args map[string]any
}

// Callback declares arbitrary JS code to run when a property changes on
// the source. It is also the embeddable base of every other declaration
// type.
type Callback struct {
	reg    *Registry
	tag    string
	source Endpoint
	code   map[string]string
	args   map[string]any

	// outer points at the outermost declaration when Callback is
	// embedded, so registration sees the concrete type.
	outer Declaration
}

// NewCallback constructs and registers a Callback. Registration is
// idempotent: an equivalent declaration already present leaves the
// registry unchanged.
func NewCallback(reg *Registry, source Endpoint, cfg CallbackConfig) (*Callback, error) {
	cb := &Callback{}
	if err := cb.initBase(reg, source, cfg.Code, cfg.Args, cb); err != nil {
		return nil, err
	}
	reg.Add(cb)
	return cb, nil
}

func (c *Callback) initBase(reg *Registry, source Endpoint, code map[string]string, args map[string]any, outer Declaration) error {
	if source.IsZero() {
		return ErrMissingSource
	}
	if _, ok := source.identity(); !ok {
		return fmt.Errorf("%w: source is not a linkable object", ErrMissingSource)
	}
	c.reg = reg
	c.tag = uuid.NewString()
	c.source = source
	c.code = code
	c.args = args
	c.outer = outer
	return nil
}

// Source returns the declaration's source endpoint.
func (c *Callback) Source() Endpoint { return c.source }

// Target reports that a plain callback has no target.
func (c *Callback) Target() (Endpoint, bool) { return Endpoint{}, false }

// RequiresTarget reports whether resolution must produce a target model.
func (c *Callback) RequiresTarget() bool { return false }

// Arguments returns the declaration's named argument objects.
func (c *Callback) Arguments() map[string]any { return c.args }

// CodeSnippets returns the explicit per-property JS snippets.
func (c *Callback) CodeSnippets() map[string]string { return c.code }

// Tag returns the declaration's identity tag.
func (c *Callback) Tag() string { return c.tag }

// Relink re-registers the declaration; a no-op while an equivalent
// declaration is present.
func (c *Callback) Relink() {
	c.reg.Add(c.self())
}

// Unlink removes this exact declaration from the registry. Removing a
// declaration that is not registered is a silent no-op.
func (c *Callback) Unlink() {
	c.reg.Remove(c.self())
}

func (c *Callback) self() Declaration {
	if c.outer != nil {
		return c.outer
	}
	return c
}

func (c *Callback) paramsEqual(other Declaration) bool {
	o, ok := other.(interface {
		CodeSnippets() map[string]string
		Arguments() map[string]any
	})
	if !ok {
		return false
	}
	return reflect.DeepEqual(c.code, o.CodeSnippets()) &&
		reflect.DeepEqual(c.args, o.Arguments())
}

// LinkConfig configures a Link declaration.
type LinkConfig struct {
	// Properties maps source property paths to the target property
	// paths they drive. Ignored when Code is set.
	Properties map[string]string
	// Code maps a source property path to an explicit JS snippet,
	// taking precedence over Properties.
	Code map[string]string
	// Args maps names to objects made available to the snippet.
	Args map[string]any
}

// Link declares a connection from a source to a target model: either a
// declarative property bridge or explicit JS affecting the target.
type Link struct {
	Callback
	target     Endpoint
	properties map[string]string
}

// NewLink constructs and registers a Link. The target is required; a
// zero target endpoint fails before any registry mutation.
func NewLink(reg *Registry, source, target Endpoint, cfg LinkConfig) (*Link, error) {
	l := &Link{
		target:     target,
		properties: cfg.Properties,
	}
	if l.RequiresTarget() && target.IsZero() {
		return nil, ErrMissingTarget
	}
	if err := l.initBase(reg, source, cfg.Code, cfg.Args, l); err != nil {
		return nil, err
	}
	reg.Add(l)
	return l, nil
}

// Target returns the link's target endpoint.
func (l *Link) Target() (Endpoint, bool) { return l.target, true }

// RequiresTarget reports that links must resolve a target.
func (l *Link) RequiresTarget() bool { return true }

// Properties returns the declarative source-to-target property mapping.
func (l *Link) Properties() map[string]string { return l.properties }

func (l *Link) paramsEqual(other Declaration) bool {
	o, ok := other.(*Link)
	if !ok {
		return false
	}
	return l.Callback.paramsEqual(other) &&
		reflect.DeepEqual(l.properties, o.properties)
}

// sameDeclaration reports whether two declarations are equivalent for
// dedup purposes: same concrete type, same source, same target, and
// equal parameter values.
func sameDeclaration(a, b Declaration) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !a.Source().Equal(b.Source()) {
		return false
	}
	at, aok := a.Target()
	bt, bok := b.Target()
	if aok != bok || (aok && !at.Equal(bt)) {
		return false
	}
	return a.paramsEqual(b)
}
