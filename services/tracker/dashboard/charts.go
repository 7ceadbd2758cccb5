package dashboard

import (
	"bytes"
	"fmt"
	"html"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

const (
	intensityChartWidth  = 800
	intensityChartHeight = 400
	mixChartWidth        = 700
	mixChartHeight       = 400
)

var (
	seriesColor = drawing.ColorFromHex("4c78a8")
	axisColor   = drawing.ColorFromHex("888888")
	textColor   = drawing.ColorFromHex("333333")
)

// IntensityChartSVG draws forecast intensity over time as a line with point markers.
// It needs at least two readings.
func IntensityChartSVG(rows []models.IntensityReading) ([]byte, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("intensity chart needs at least 2 readings, got %d", len(rows))
	}

	xs := make([]time.Time, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	yMax := 0.0
	for _, r := range rows {
		xs = append(xs, r.From)
		ys = append(ys, float64(r.Forecast))
		if float64(r.Forecast) > yMax {
			yMax = float64(r.Forecast)
		}
	}
	if yMax <= 0 {
		yMax = 1
	}

	ch := chart.Chart{
		Width:      intensityChartWidth,
		Height:     intensityChartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           "from",
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis: chart.YAxis{
			Name:  "forecast (gCO2/kWh)",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.1},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "forecast",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: seriesColor,
					StrokeWidth: 2,
					DotWidth:    3,
					DotColor:    seriesColor,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render intensity chart: %w", err)
	}
	return buf.Bytes(), nil
}

// MixChartSVG draws one horizontal bar per fuel, top to bottom in the order given.
func MixChartSVG(bars []models.GenerationMixEntry) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("generation mix chart needs at least 1 fuel")
	}

	r, err := chart.SVG(mixChartWidth, mixChartHeight)
	if err != nil {
		return nil, fmt.Errorf("create svg renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load chart font: %w", err)
	}
	r.SetFont(font)

	const (
		pad        = 20
		labelWidth = 90
		valueWidth = 50
		axisHeight = 30
	)
	plotLeft := pad + labelWidth
	plotRight := mixChartWidth - pad - valueWidth
	plotTop := pad
	plotBottom := mixChartHeight - axisHeight

	maxPerc := 0.0
	for _, b := range bars {
		if b.Perc > maxPerc {
			maxPerc = b.Perc
		}
	}
	if maxPerc <= 0 {
		maxPerc = 1
	}

	rowHeight := (plotBottom - plotTop) / len(bars)
	barHeight := rowHeight * 7 / 10
	if barHeight < 1 {
		barHeight = 1
	}

	for i, b := range bars {
		y0 := plotTop + i*rowHeight + (rowHeight-barHeight)/2
		y1 := y0 + barHeight
		width := int(b.Perc / maxPerc * float64(plotRight-plotLeft))
		if width > 0 {
			r.SetFillColor(seriesColor)
			r.SetStrokeColor(seriesColor)
			r.SetStrokeWidth(1)
			r.MoveTo(plotLeft, y0)
			r.LineTo(plotLeft+width, y0)
			r.LineTo(plotLeft+width, y1)
			r.LineTo(plotLeft, y1)
			r.LineTo(plotLeft, y0)
			r.Close()
			r.FillStroke()
		}

		textY := y0 + barHeight/2 + 4
		r.SetFontColor(textColor)
		r.SetFontSize(10)
		r.Text(html.EscapeString(b.Fuel), pad, textY)
		r.Text(fmt.Sprintf("%.1f%%", b.Perc), plotLeft+width+4, textY)
	}

	r.SetStrokeColor(axisColor)
	r.SetStrokeWidth(1)
	r.MoveTo(plotLeft, plotTop)
	r.LineTo(plotLeft, plotBottom)
	r.LineTo(plotRight, plotBottom)
	r.Stroke()

	r.SetFontColor(axisColor)
	r.SetFontSize(10)
	r.Text("perc", (plotLeft+plotRight)/2, plotBottom+axisHeight/2+4)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("render generation mix chart: %w", err)
	}
	return buf.Bytes(), nil
}
