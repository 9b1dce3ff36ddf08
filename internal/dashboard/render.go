package dashboard

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"indicator-spec/internal"
)

type ChartKind string

const (
	ChartScatter ChartKind = "scatter"
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
)

func ParseChartKind(s string) (ChartKind, error) {
	switch k := ChartKind(s); k {
	case ChartScatter, ChartLine, ChartBar:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
	}
}

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts svg (the default) or png.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatSVG):
		return FormatSVG, nil
	case string(FormatPNG):
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be svg or png", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Chart is a projection that can be drawn.
type Chart interface {
	Kind() ChartKind
	renderer() renderer
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// BuildChart builds the projection for kind.
func BuildChart(kind ChartKind, g internal.Grouped, sel internal.Selection, top int) (Chart, error) {
	switch kind {
	case ChartScatter:
		return Scatter(g, sel)
	case ChartLine:
		return Line(g, sel)
	case ChartBar:
		return Bar(g, sel, top)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}
}

// RenderChart draws c to w.
func RenderChart(w io.Writer, c Chart, format Format) error {
	provider := chart.SVG
	if format == FormatPNG {
		provider = chart.PNG
	}
	if err := c.renderer().Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", c.Kind(), err)
	}
	return nil
}

var palette = []drawing.Color{
	drawing.ColorFromHex("4F46E5"), drawing.ColorFromHex("10B981"), drawing.ColorFromHex("F59E0B"),
	drawing.ColorFromHex("EF4444"), drawing.ColorFromHex("8B5CF6"), drawing.ColorFromHex("06B6D4"),
	drawing.ColorFromHex("EC4899"), drawing.ColorFromHex("84CC16"), drawing.ColorFromHex("F97316"),
	drawing.ColorFromHex("6366F1"),
}

var averageColor = drawing.ColorFromHex("1E3A8A")

func (c *ScatterChart) Kind() ChartKind { return ChartScatter }

func (c *ScatterChart) renderer() renderer {
	xs := make([]float64, len(c.Points))
	ys := make([]float64, len(c.Points))
	for i, p := range c.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	return &chart.Chart{
		Title:  fmt.Sprintf("%s vs %s (%d)", c.YMetric, c.XMetric, c.Period),
		Width:  1024,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{Name: c.XMetric, ValueFormatter: formatAxis, Range: padRange(xs)},
		YAxis: chart.YAxis{Name: c.YMetric, ValueFormatter: formatAxis, Range: padRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    c.YMetric,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    palette[1],
				},
			},
		},
	}
}

func (c *LineChart) Kind() ChartKind { return ChartLine }

func (c *LineChart) renderer() renderer {
	var xs, ys []float64
	periods := func(s Series) []float64 {
		sx := make([]float64, len(s.Periods))
		for j, p := range s.Periods {
			sx[j] = float64(p)
		}
		xs = append(xs, sx...)
		ys = append(ys, s.Values...)
		return sx
	}

	series := make([]chart.Series, 0, len(c.Series)+1)
	if len(c.Average.Values) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    c.Average.Entity,
			XValues: periods(c.Average),
			YValues: c.Average.Values,
			Style: chart.Style{
				StrokeColor:     averageColor,
				StrokeWidth:     3,
				StrokeDashArray: []float64{6, 4},
			},
		})
	}
	for i, s := range c.Series {
		col := palette[i%len(palette)]
		series = append(series, chart.ContinuousSeries{
			Name:    s.Entity,
			XValues: periods(s),
			YValues: s.Values,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotWidth: 3, DotColor: col},
		})
	}

	ch := &chart.Chart{
		Title:  c.Metric,
		Width:  1024,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: "Year", ValueFormatter: formatYear, Range: padRange(xs)},
		YAxis:  chart.YAxis{Name: c.Metric, ValueFormatter: formatAxis, Range: padRange(ys)},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch
}

func (c *BarChart) Kind() ChartKind { return ChartBar }

func (c *BarChart) renderer() renderer {
	const barWidth, spacing = 48, 16
	bars := make([]chart.Value, len(c.Bars))
	lo, hi := 0.0, 0.0
	for i, b := range c.Bars {
		bars[i] = chart.Value{
			Label: b.Entity,
			Value: b.Value,
			Style: chart.Style{FillColor: palette[0], StrokeColor: palette[0]},
		}
		lo, hi = math.Min(lo, b.Value), math.Max(hi, b.Value)
	}
	if lo == hi {
		hi = lo + 1
	}
	return &chart.BarChart{
		Title:      fmt.Sprintf("%s (%d)", c.Metric, c.Period),
		Width:      max(1024, len(bars)*(barWidth+spacing)+160),
		Height:     640,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		YAxis: chart.YAxis{
			ValueFormatter: formatAxis,
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
}

// padRange widens a degenerate range so a single distinct value can be drawn.
// Returns nil, letting the chart compute the range, otherwise.
func padRange(values []float64) chart.Range {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo != hi {
		return nil
	}
	pad := math.Abs(lo) / 10
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// FormatValue renders a measurement with English digit grouping and at most
// two fraction digits: 1234567.891 becomes "1,234,567.89".
func FormatValue(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func formatAxis(v interface{}) string {
	if f, ok := v.(float64); ok {
		return FormatValue(f)
	}
	return fmt.Sprint(v)
}

func formatYear(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return fmt.Sprint(v)
}
