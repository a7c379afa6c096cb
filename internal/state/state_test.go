package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

func TestOpenGetClose(t *testing.T) {
	store := NewStore()
	root := view.New("column", "root")
	doc := model.New("Column")

	session := store.Open(root, doc)
	got, ok := store.Get(session.ID)
	require.True(t, ok)
	assert.Same(t, session, got)

	store.Close(session.ID, nil)
	_, ok = store.Get(session.ID)
	assert.False(t, ok)

	// Closing again is a no-op.
	store.Close(session.ID, nil)
}

func TestCloseDropsModelsAndLinks(t *testing.T) {
	store := NewStore()
	reg := links.NewRegistry()

	root := view.New("column", "root")
	slider := view.New("slider", "slider")
	plot := view.New("plot", "plot")
	root.Append(slider, plot)

	doc := model.New("Column")
	slider.SetModel(doc.Ref(), model.New("Slider"))

	_, err := links.NewLink(reg, links.ElementOf(slider), links.ElementOf(plot), links.LinkConfig{
		Properties: map[string]string{"value": "line_width"},
	})
	require.NoError(t, err)
	require.Len(t, reg.Registered(links.ElementOf(slider)), 1)

	session := store.Open(root, doc)
	store.Close(session.ID, reg)

	_, ok := slider.Model(doc.Ref())
	assert.False(t, ok)
	assert.Empty(t, reg.Registered(links.ElementOf(slider)))
}

func TestListOrdersByCreation(t *testing.T) {
	store := NewStore()
	a := store.Open(view.New("column", "a"), model.New("Column"))
	b := store.Open(view.New("column", "b"), model.New("Column"))

	listed := store.List()
	require.Len(t, listed, 2)
	assert.Contains(t, []string{a.ID, b.ID}, listed[0].ID)
	assert.Contains(t, []string{a.ID, b.ID}, listed[1].ID)
	assert.NotEqual(t, listed[0].ID, listed[1].ID)

	store.CloseAll(nil)
	assert.Empty(t, store.List())
}
