package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// newSliderPlot builds the canonical two-element dashboard used across
// the resolver tests: a slider linked to a line glyph.
func newSliderPlot(t *testing.T) (root *view.Element, slider *view.Element, plot *view.Element, rootModel *model.Model, sliderModel *model.Model, plotModel *model.Model) {
	t.Helper()

	root = view.New("column", "root")
	slider = view.New("slider", "slider")
	plot = view.New("plot", "plot")
	root.Append(slider, plot)

	rootModel = model.New("Column")
	sliderModel = model.New("Slider")
	sliderModel.Declare("value", cty.Number)
	require.NoError(t, sliderModel.Set("value", cty.NumberIntVal(2)))
	plotModel = model.New("Line")
	plotModel.Declare("line_width", cty.Number)

	rootModel.SetChild("slider", sliderModel)
	rootModel.SetChild("plot", plotModel)

	slider.SetModel(rootModel.Ref(), sliderModel)
	plot.SetModel(rootModel.Ref(), plotModel)
	return root, slider, plot, rootModel, sliderModel, plotModel
}

func TestRegisterEquivalentLinkIsNoOp(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	cfg := LinkConfig{Properties: map[string]string{"value": "line_width"}}
	l1, err := NewLink(reg, ElementOf(slider), ElementOf(plot), cfg)
	require.NoError(t, err)

	l2, err := NewLink(reg, ElementOf(slider), ElementOf(plot), cfg)
	require.NoError(t, err)
	require.NotSame(t, l1, l2)

	registered := reg.Registered(ElementOf(slider))
	require.Len(t, registered, 1)
	assert.Same(t, l1, registered[0].(*Link))
}

func TestRegisterDistinctLinksAppendsInOrder(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	l1, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.NoError(t, err)
	l2, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_alpha"}})
	require.NoError(t, err)

	registered := reg.Registered(ElementOf(slider))
	require.Len(t, registered, 2)
	assert.Same(t, l1, registered[0].(*Link))
	assert.Same(t, l2, registered[1].(*Link))
}

func TestUnlinkRemovesExactInstance(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	l1, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.NoError(t, err)
	l2, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_alpha"}})
	require.NoError(t, err)
	l3, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"start": "line_width"}})
	require.NoError(t, err)

	l2.Unlink()
	registered := reg.Registered(ElementOf(slider))
	require.Len(t, registered, 2)
	assert.Same(t, l1, registered[0].(*Link))
	assert.Same(t, l3, registered[1].(*Link))

	// Unlinking twice is a silent no-op.
	l2.Unlink()
	assert.Len(t, reg.Registered(ElementOf(slider)), 2)
}

func TestRelinkIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	l, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.NoError(t, err)

	l.Relink()
	assert.Len(t, reg.Registered(ElementOf(slider)), 1)

	l.Unlink()
	assert.Empty(t, reg.Registered(ElementOf(slider)))

	l.Relink()
	assert.Len(t, reg.Registered(ElementOf(slider)), 1)
}

func TestLinkRequiresTarget(t *testing.T) {
	reg := NewRegistry()
	_, slider, _, _, _, _ := newSliderPlot(t)

	_, err := NewLink(reg, ElementOf(slider), Endpoint{}, LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.ErrorIs(t, err, ErrMissingTarget)

	// Construction failed before any registry mutation.
	assert.Empty(t, reg.Registered(ElementOf(slider)))
}

func TestCallbackRequiresSource(t *testing.T) {
	reg := NewRegistry()

	_, err := NewCallback(reg, Endpoint{}, CallbackConfig{Code: map[string]string{"value": "console.log(cb_obj)"}})
	require.ErrorIs(t, err, ErrMissingSource)

	// An opaque value is not a registrable source either.
	_, err = NewCallback(reg, ValueOf(42), CallbackConfig{Code: map[string]string{"value": "console.log(cb_obj)"}})
	require.ErrorIs(t, err, ErrMissingSource)
}

func TestCallbackWithoutTargetRegisters(t *testing.T) {
	reg := NewRegistry()
	_, slider, _, _, _, _ := newSliderPlot(t)

	cb, err := NewCallback(reg, ElementOf(slider), CallbackConfig{Code: map[string]string{"value": "console.log(cb_obj.value)"}})
	require.NoError(t, err)

	registered := reg.Registered(ElementOf(slider))
	require.Len(t, registered, 1)
	assert.Same(t, cb, registered[0].(*Callback))
	_, hasTarget := registered[0].Target()
	assert.False(t, hasTarget)
}

func TestCallbackAndLinkDoNotDedupeAcrossTypes(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	code := map[string]string{"value": "console.log(cb_obj.value)"}
	_, err := NewCallback(reg, ElementOf(slider), CallbackConfig{Code: code})
	require.NoError(t, err)
	_, err = NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Code: code})
	require.NoError(t, err)

	assert.Len(t, reg.Registered(ElementOf(slider)), 2)
}

func TestDropElementClearsEntries(t *testing.T) {
	reg := NewRegistry()
	_, slider, plot, _, _, _ := newSliderPlot(t)

	_, err := NewLink(reg, ElementOf(slider), ElementOf(plot), LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.NoError(t, err)

	reg.DropElement(slider)
	assert.Empty(t, reg.Registered(ElementOf(slider)))
}

func TestModelEndpointsRegister(t *testing.T) {
	reg := NewRegistry()
	src := model.New("Slider")
	tgt := model.New("Line")

	l, err := NewLink(reg, ModelOf(src), ModelOf(tgt), LinkConfig{Properties: map[string]string{"value": "line_width"}})
	require.NoError(t, err)

	registered := reg.Registered(ModelOf(src))
	require.Len(t, registered, 1)
	assert.Same(t, l, registered[0].(*Link))
}
