package render

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

const (
	historyDot  = 6
	forecastDot = 14
)

var (
	historyLineColor = hexColor("#808080")
	officialColor    = drawing.ColorBlack
	coneColor        = hexColor("#2a2a2a")
)

// modelPalette colours compare-plot tracks in model id order.
var modelPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#17becf", "#bcbd22", "#7f7f7f",
}

// StormTrack draws the best track with category-coloured fixes and the
// forecast positions that lie beyond the last fix, labelled by forecast hour.
func (r *Renderer) StormTrack(storm domain.Storm, best domain.BestTrack, forecast domain.ForecastRecord) ([]byte, error) {
	forecast = domain.MarkObserved(forecast, best.LastObserved())
	history := domain.TrackLine(best)

	bound, ok := domain.PlotExtent(domain.ExtentPadDegrees, history, domain.ForecastLine(forecast))
	if !ok {
		return nil, fmt.Errorf("storm track %s: %w", storm.ID, ErrNoData)
	}

	c := r.newCanvas(storm.Title(), bound)
	c.line(history, chart.Style{StrokeColor: historyLineColor, StrokeWidth: 1})
	c.dots(history, historyColors(best), historyDot)

	var pts []orb.Point
	var colors []drawing.Color
	var text []string
	for _, p := range forecast.Points {
		if p.Observed {
			continue
		}
		pts = append(pts, orb.Point{p.Lon, p.Lat})
		colors = append(colors, categoryColor(p.WindKt))
		text = append(text, strconv.Itoa(p.FHR))
	}
	c.dots(pts, colors, forecastDot)
	c.labels(pts, text)

	categoryLegend(c)
	return r.encode(c)
}

// ForecastCone draws the official forecast, its cone of uncertainty and the
// storm history.
func (r *Renderer) ForecastCone(storm domain.Storm, best domain.BestTrack, official domain.ForecastRecord) ([]byte, error) {
	official = domain.MarkObserved(official, best.LastObserved())
	history := domain.TrackLine(best)
	track := domain.ForecastLine(official)

	lines := []orb.LineString{history, track}
	cone, err := domain.ForecastCone(official, storm.Basin)
	switch {
	case err == nil:
		lines = append(lines, orb.LineString(cone[0]))
	case errors.Is(err, domain.ErrConeTooShort):
		cone = nil
	default:
		return nil, fmt.Errorf("forecast cone %s: %w", storm.ID, err)
	}

	bound, ok := domain.PlotExtent(domain.ExtentPadDegrees, lines...)
	if !ok {
		return nil, fmt.Errorf("forecast cone %s: %w", storm.ID, ErrNoData)
	}

	c := r.newCanvas(storm.Title()+" - "+official.ModelID+" "+cycleTitle(official.IssueTime), bound)
	if cone != nil {
		c.line(orb.LineString(cone[0]), chart.Style{StrokeColor: coneColor, StrokeWidth: 1.5, StrokeDashArray: []float64{6, 3}})
		c.legendEntry("Cone of uncertainty", coneColor)
	}
	c.line(history, chart.Style{StrokeColor: historyLineColor, StrokeWidth: 1})
	c.dots(history, historyColors(best), historyDot)
	c.line(track, chart.Style{StrokeColor: officialColor, StrokeWidth: 2})

	var pts []orb.Point
	var colors []drawing.Color
	for _, p := range official.Points {
		pts = append(pts, orb.Point{p.Lon, p.Lat})
		colors = append(colors, categoryColor(p.WindKt))
	}
	c.dots(pts, colors, forecastDot/2)

	c.legendEntry("Official forecast", officialColor)
	categoryLegend(c)
	return r.encode(c)
}

// CompareForecasts overlays the newest run of every model on the storm
// history. The official forecast is drawn last and thicker.
func (r *Renderer) CompareForecasts(storm domain.Storm, best domain.BestTrack, records []domain.ForecastRecord) ([]byte, error) {
	latest := domain.LatestByModel(domain.ForStorm(records, storm.ID))
	history := domain.TrackLine(best)

	lines := []orb.LineString{history}
	for _, rec := range latest {
		lines = append(lines, domain.ForecastLine(rec))
	}
	bound, ok := domain.PlotExtent(domain.ExtentPadDegrees, lines...)
	if !ok {
		return nil, fmt.Errorf("compare forecasts %s: %w", storm.ID, ErrNoData)
	}

	c := r.newCanvas(storm.Title()+" - model forecasts", bound)
	c.line(history, chart.Style{StrokeColor: historyLineColor, StrokeWidth: 1})
	c.dots(history, historyColors(best), historyDot)

	var official *domain.ForecastRecord
	color := 0
	for i := range latest {
		rec := latest[i]
		if rec.ModelID == domain.OfficialModelID {
			official = &latest[i]
			continue
		}
		col := hexColor(modelPalette[color%len(modelPalette)])
		color++
		line := domain.ForecastLine(rec)
		c.line(line, chart.Style{StrokeColor: col, StrokeWidth: 1.5, DotWidth: 2, DotColor: col})
		c.legendEntry(rec.ModelID+" "+cycleLabel(rec.IssueTime), col)
	}
	if official != nil {
		c.line(domain.ForecastLine(*official), chart.Style{StrokeColor: officialColor, StrokeWidth: 3, DotWidth: 3, DotColor: officialColor})
		// First, so it survives legend overflow.
		c.legend = append([]legendEntry{{label: official.ModelID + " " + cycleLabel(official.IssueTime), color: officialColor}}, c.legend...)
	}
	return r.encode(c)
}

func historyColors(best domain.BestTrack) []drawing.Color {
	colors := make([]drawing.Color, len(best.Points))
	for i, p := range best.Points {
		colors[i] = categoryColor(p.VmaxKt)
	}
	return colors
}

func categoryLegend(c *canvas) {
	for _, cat := range domain.LegendCategories() {
		c.legendEntry(cat.String(), hexColor(cat.Color()))
	}
}
