// Package render draws storm maps with go-chart on an equirectangular
// lon/lat canvas and encodes them as JPEG.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/paulmach/orb"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

const (
	canvasWidth = 1200
	minHeight   = 480
	maxHeight   = 1500

	waterColor = "#d5f0ff"
	landLine   = "#808080"
)

// ErrNoData is returned when a plot has no positions to draw.
var ErrNoData = errors.New("nothing to plot")

// Renderer turns domain data into JPEG images.
type Renderer struct {
	basemap *Basemap
	quality int
}

// NewRenderer creates a renderer. basemap may be nil; quality is the JPEG
// quality from 1 to 100.
func NewRenderer(basemap *Basemap, quality int) *Renderer {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Renderer{basemap: basemap, quality: quality}
}

// canvas collects series for one map before it is rendered.
type canvas struct {
	title  string
	bound  orb.Bound
	series []chart.Series
	legend []legendEntry
}

func (r *Renderer) newCanvas(title string, bound orb.Bound) *canvas {
	c := &canvas{title: title, bound: bound}
	for _, ls := range r.basemap.Lines(bound) {
		c.line(ls, chart.Style{StrokeColor: hexColor(landLine), StrokeWidth: 0.6})
	}
	return c
}

func (c *canvas) line(ls orb.LineString, style chart.Style) {
	if len(ls) == 0 {
		return
	}
	xs, ys := split(ls)
	c.series = append(c.series, chart.ContinuousSeries{XValues: xs, YValues: ys, Style: style})
}

// dots draws one marker per point, coloured per point.
func (c *canvas) dots(pts []orb.Point, colors []drawing.Color, width float64) {
	if len(pts) == 0 {
		return
	}
	xs, ys := split(pts)
	c.series = append(c.series, chart.ContinuousSeries{
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    width,
			DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
				return colors[index]
			},
		},
	})
}

// labels places a text annotation at each point.
func (c *canvas) labels(pts []orb.Point, text []string) {
	if len(pts) == 0 {
		return
	}
	values := make([]chart.Value2, len(pts))
	for i, p := range pts {
		values[i] = chart.Value2{XValue: p[0], YValue: p[1], Label: text[i]}
	}
	c.series = append(c.series, chart.AnnotationSeries{
		Annotations: values,
		Style: chart.Style{
			FontSize:    8,
			FontColor:   drawing.ColorBlack,
			StrokeColor: drawing.ColorBlack,
			FillColor:   drawing.ColorWhite.WithAlpha(200),
		},
	})
}

func (c *canvas) legendEntry(label string, color drawing.Color) {
	c.legend = append(c.legend, legendEntry{label: label, color: color})
}

// size keeps a degree of longitude and latitude roughly equal on screen at
// the map's central latitude.
func (c *canvas) size() (int, int) {
	lonSpan := c.bound.Max[0] - c.bound.Min[0]
	latSpan := c.bound.Max[1] - c.bound.Min[1]
	if lonSpan <= 0 || latSpan <= 0 {
		return canvasWidth, canvasWidth * 2 / 3
	}
	midLat := (c.bound.Max[1] + c.bound.Min[1]) / 2
	scale := math.Max(math.Cos(midLat*math.Pi/180), 0.2)
	h := int(float64(canvasWidth) * latSpan / (lonSpan * scale))
	return canvasWidth, min(max(h, minHeight), maxHeight)
}

func (r *Renderer) encode(c *canvas) ([]byte, error) {
	width, height := c.size()
	graph := chart.Chart{
		Title:      c.title,
		TitleStyle: chart.Style{FontSize: 16, FontColor: drawing.ColorBlack},
		Width:      width,
		Height:     height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: hexColor(waterColor)},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: c.bound.Min[0], Max: c.bound.Max[0]},
			Ticks:          degreeTicks(c.bound.Min[0], c.bound.Max[0], LonLabel),
			GridMajorStyle: gridStyle(),
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: c.bound.Min[1], Max: c.bound.Max[1]},
			Ticks:          degreeTicks(c.bound.Min[1], c.bound.Max[1], LatLabel),
			GridMajorStyle: gridStyle(),
		},
		Series: c.series,
	}
	graph.XAxis.GridLines = gridLines(graph.XAxis.Ticks)
	graph.YAxis.GridLines = gridLines(graph.YAxis.Ticks)
	if len(c.legend) > 0 {
		graph.Elements = []chart.Renderable{legend(c.legend)}
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart png: %w", err)
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

func gridStyle() chart.Style {
	return chart.Style{
		StrokeColor:     drawing.ColorFromHex("808080").WithAlpha(128),
		StrokeWidth:     0.5,
		StrokeDashArray: []float64{4, 4},
	}
}

func gridLines(ticks []chart.Tick) []chart.GridLine {
	lines := make([]chart.GridLine, 0, len(ticks))
	for _, t := range ticks {
		lines = append(lines, chart.GridLine{Value: t.Value})
	}
	return lines
}

type legendEntry struct {
	label string
	color drawing.Color
}

// legend draws a boxed key in the upper-left corner of the canvas.
func legend(entries []legendEntry) chart.Renderable {
	return func(r chart.Renderer, canvasBox chart.Box, defaults chart.Style) {
		font := defaults.Font
		if font == nil {
			f, err := chart.GetDefaultFont()
			if err != nil {
				return
			}
			font = f
		}
		drawLegend(r, canvasBox, font, entries)
	}
}

func drawLegend(r chart.Renderer, canvasBox chart.Box, font *truetype.Font, entries []legendEntry) {
	const (
		pad      = 6
		swatch   = 10
		rowGap   = 4
		fontSize = 8
	)
	r.SetFont(font)
	r.SetFontSize(fontSize)
	r.SetFontColor(drawing.ColorBlack)

	textWidth, rowHeight := r.MeasureText(moreLabel(len(entries))).Width(), swatch
	for _, e := range entries {
		tb := r.MeasureText(e.label)
		textWidth = max(textWidth, tb.Width())
		rowHeight = max(rowHeight, tb.Height())
	}
	colWidth := pad + swatch + pad + textWidth

	maxRows := (canvasBox.Height() - 3*pad + rowGap) / (rowHeight + rowGap)
	maxCols := (canvasBox.Width() - 3*pad) / colWidth
	entries, rows, cols := layoutLegend(entries, maxRows, maxCols)
	if len(entries) == 0 {
		return
	}

	left, top := canvasBox.Left+pad, canvasBox.Top+pad
	right := left + cols*colWidth + pad
	bottom := top + pad + rows*(rowHeight+rowGap) - rowGap + pad

	r.SetFillColor(drawing.ColorWhite.WithAlpha(220))
	r.SetStrokeColor(drawing.ColorBlack)
	r.SetStrokeWidth(0.5)
	rect(r, left, top, right, bottom)
	r.FillStroke()

	for i, e := range entries {
		x := left + (i/rows)*colWidth
		y := top + pad + (i%rows)*(rowHeight+rowGap)
		if e.color != (drawing.Color{}) {
			r.SetFillColor(e.color)
			r.SetStrokeColor(drawing.ColorBlack)
			r.SetStrokeWidth(0.5)
			sy := y + (rowHeight-swatch)/2
			rect(r, x+pad, sy, x+pad+swatch, sy+swatch)
			r.FillStroke()
		}

		r.SetFontColor(drawing.ColorBlack)
		r.Text(e.label, x+pad+swatch+pad, y+rowHeight)
	}
}

// layoutLegend flows entries down columns of at most maxRows, using at most
// maxCols columns. Entries that do not fit are replaced by a single
// "+N more" row with no swatch.
func layoutLegend(entries []legendEntry, maxRows, maxCols int) (kept []legendEntry, rows, cols int) {
	maxRows, maxCols = max(maxRows, 1), max(maxCols, 1)
	if len(entries) > maxRows*maxCols {
		fit := maxRows*maxCols - 1
		kept = make([]legendEntry, 0, fit+1)
		kept = append(kept, entries[:fit]...)
		entries = append(kept, legendEntry{label: moreLabel(len(entries) - fit)})
	}
	if len(entries) == 0 {
		return nil, 0, 0
	}
	rows = min(len(entries), maxRows)
	cols = (len(entries) + rows - 1) / rows
	return entries, rows, cols
}

func moreLabel(n int) string {
	return fmt.Sprintf("+%d more", n)
}

func rect(r chart.Renderer, left, top, right, bottom int) {
	r.MoveTo(left, top)
	r.LineTo(right, top)
	r.LineTo(right, bottom)
	r.LineTo(left, bottom)
	r.LineTo(left, top)
	r.Close()
}

func split[P ~[]orb.Point](pts P) ([]float64, []float64) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p[0], p[1]
	}
	return xs, ys
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func categoryColor(kt float64) drawing.Color {
	return hexColor(domain.CategoryForWind(kt).Color())
}
