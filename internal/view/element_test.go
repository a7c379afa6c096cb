package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/propath"
)

func TestSelectDepthFirst(t *testing.T) {
	root := New("column", "root")
	sidebar := New("column", "sidebar")
	slider := New("slider", "slider")
	plot := New("plot", "plot")
	sidebar.Append(slider)
	root.Append(sidebar, plot)

	all := root.Select(nil)
	require.Len(t, all, 4)
	assert.Same(t, root, all[0])
	assert.Same(t, sidebar, all[1])
	assert.Same(t, slider, all[2])
	assert.Same(t, plot, all[3])

	sliders := root.Select(func(e *Element) bool { return e.TypeName() == "slider" })
	require.Len(t, sliders, 1)
	assert.Same(t, slider, sliders[0])
}

func TestFindByNamePath(t *testing.T) {
	root := New("column", "root")
	sidebar := New("column", "sidebar")
	slider := New("slider", "slider")
	sidebar.Append(slider)
	root.Append(sidebar)

	mustPath := func(raw string) *propath.Path {
		p, err := propath.Parse(raw)
		require.NoError(t, err)
		return p
	}

	got, ok := root.Find(mustPath("sidebar.slider"))
	require.True(t, ok)
	assert.Same(t, slider, got)

	// Leading root name is accepted.
	got, ok = root.Find(mustPath("root.sidebar.slider"))
	require.True(t, ok)
	assert.Same(t, slider, got)

	_, ok = root.Find(mustPath("sidebar.missing"))
	assert.False(t, ok)
}

func TestRenamedProp(t *testing.T) {
	slider := New("slider", "slider")
	assert.Equal(t, "value", slider.RenamedProp("value"))

	slider.RenameProp("value", "value_throttled")
	assert.Equal(t, "value_throttled", slider.RenamedProp("value"))
	assert.Equal(t, "start", slider.RenamedProp("start"))
}

func TestModelBookkeeping(t *testing.T) {
	root := New("column", "root")
	slider := New("slider", "slider")
	root.Append(slider)

	doc := model.New("Document")
	m := model.New("Slider")
	slider.SetModel(doc.Ref(), m)

	got, ok := slider.Model(doc.Ref())
	require.True(t, ok)
	assert.Same(t, m, got)

	root.DropModels(doc.Ref())
	_, ok = slider.Model(doc.Ref())
	assert.False(t, ok)
}
