package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/dashlink/internal/propath"
)

func TestSetValidatesDeclaredType(t *testing.T) {
	m := New("Line")
	m.Declare("line_width", cty.Number)

	// Compatible value converts and sticks.
	require.NoError(t, m.Set("line_width", cty.NumberIntVal(3)))
	v, ok := m.Get("line_width")
	require.True(t, ok)
	assert.True(t, cty.NumberIntVal(3).RawEquals(v))

	// Incompatible value is rejected and the stored value is unchanged.
	err := m.Set("line_width", cty.StringVal("wide"))
	require.Error(t, err)
	v, _ = m.Get("line_width")
	assert.True(t, cty.NumberIntVal(3).RawEquals(v))
}

func TestSetUndeclaredPropertyPassesThrough(t *testing.T) {
	m := New("Div")
	require.NoError(t, m.Set("text", cty.StringVal("hello")))
	v, ok := m.Get("text")
	require.True(t, ok)
	assert.Equal(t, "hello", v.AsString())
}

func TestResolveNestedPath(t *testing.T) {
	plot := New("Plot")
	axis := New("Axis")
	plot.SetChild("axis", axis)
	glyph := New("Line")
	renderer := New("Renderer")
	renderer.SetChild("glyph", glyph)
	plot.AppendChild("renderers", renderer)

	p, err := propath.Parse("axis")
	require.NoError(t, err)
	got, err := plot.Resolve(p)
	require.NoError(t, err)
	assert.Same(t, axis, got)

	p, err = propath.Parse("renderers[0].glyph")
	require.NoError(t, err)
	got, err = plot.Resolve(p)
	require.NoError(t, err)
	assert.Same(t, glyph, got)

	p, err = propath.Parse("missing")
	require.NoError(t, err)
	_, err = plot.Resolve(p)
	assert.Error(t, err)
}

func TestSelectIsStableDocumentOrder(t *testing.T) {
	root := New("Column")
	b := New("B")
	a := New("A")
	root.SetChild("second", b)
	root.SetChild("first", a)

	all := root.Select(nil)
	require.Len(t, all, 3)
	assert.Same(t, root, all[0])
	// Named children visit in sorted name order.
	assert.Same(t, a, all[1])
	assert.Same(t, b, all[2])

	again := root.Select(nil)
	assert.Equal(t, all, again)
}

func TestHasTaggedCallback(t *testing.T) {
	m := New("Slider")
	assert.False(t, m.HasTaggedCallback("link-1"))

	m.OnChange("value", &CustomJS{Code: "void 0", Tags: []string{"link-1"}})
	assert.True(t, m.HasTaggedCallback("link-1"))
	assert.False(t, m.HasTaggedCallback("link-2"))

	// Event callbacks do not participate in the dedup guard.
	m.OnEvent("tap", &CustomJS{Code: "void 0", Tags: []string{"link-2"}})
	assert.False(t, m.HasTaggedCallback("link-2"))
}

func TestHasTaggedCallbackOnIsScopedPerProperty(t *testing.T) {
	m := New("Slider")
	m.OnChange("start", &CustomJS{Code: "void 0", Tags: []string{"link-1"}})

	assert.True(t, m.HasTaggedCallbackOn("start", "link-1"))
	assert.False(t, m.HasTaggedCallbackOn("value", "link-1"))
	assert.False(t, m.HasTaggedCallbackOn("start", "link-2"))

	m.OnEvent("tap", &CustomJS{Code: "void 0", Tags: []string{"link-1"}})
	assert.True(t, m.HasTaggedEventCallbackOn("tap", "link-1"))
	assert.False(t, m.HasTaggedCallbackOn("tap", "link-1"))
}

func TestWatcherFiresOnSet(t *testing.T) {
	m := New("Slider")
	m.Declare("value", cty.Number)

	var seen []string
	m.Watch(func(m *Model, prop string, v cty.Value) {
		seen = append(seen, prop)
	})

	require.NoError(t, m.Set("value", cty.NumberIntVal(1)))
	require.Error(t, m.Set("value", cty.StringVal("nope")))
	assert.Equal(t, []string{"value"}, seen)
}
