package app

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/dashlink/internal/ctxlog"
	"github.com/vk/dashlink/internal/links"
	"github.com/vk/dashlink/internal/manifest"
	"github.com/vk/dashlink/internal/model"
	"github.com/vk/dashlink/internal/view"
)

// demoDashboard builds the built-in slider-drives-plot dashboard. When a
// manifest path is configured its declarations replace the default
// wiring.
func (a *App) demoDashboard(ctx context.Context, reg *links.Registry) (*view.Element, *model.Model, error) {
	logger := ctxlog.FromContext(ctx)

	column := view.New("column", "column")
	slider := view.New("slider", "slider")
	plot := view.New("plot", "plot")
	column.Append(slider, plot)

	doc := model.New("Column")
	sliderModel := model.New("Slider")
	sliderModel.Declare("value", cty.Number)
	if err := sliderModel.Set("value", cty.NumberIntVal(2)); err != nil {
		return nil, nil, err
	}
	lineModel := model.New("Line")
	lineModel.Declare("line_width", cty.Number)

	doc.AppendChild("children", sliderModel)
	doc.AppendChild("children", lineModel)
	slider.SetModel(doc.Ref(), sliderModel)
	plot.SetModel(doc.Ref(), lineModel)

	if a.config.ManifestPath != "" {
		decls, err := manifest.NewLoader().Load(ctx, reg, column, a.config.ManifestPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load link manifest: %w", err)
		}
		logger.Debug("Manifest declarations registered.", "count", len(decls))
		return column, doc, nil
	}

	_, err := links.NewLink(reg, links.ElementOf(slider), links.ElementOf(plot), links.LinkConfig{
		Properties: map[string]string{"value": "line_width"},
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Default demo link registered.")
	return column, doc, nil
}
