// Package chart renders persisted benchmark results as PNG bar charts, one
// per metric plus an optional side-by-side composite.
package chart

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/weiihann/headbench/harness"
	"github.com/weiihann/headbench/results"
)

const (
	// CombinedFile is the name of the side-by-side composite image.
	CombinedFile = "benchmark-combined.png"
	// ModeAxisLabel labels the X axis of every metric chart.
	ModeAxisLabel = "Mode"
)

// Metric describes one chart.
type Metric struct {
	Key   string
	Label string
	Title string
	Unit  string
	Value func(harness.SummaryRecord) int64
}

// File returns the image name for the metric.
func (m Metric) File() string {
	return "benchmark-" + m.Key + ".png"
}

// Metrics returns the charted metrics in panel order.
func Metrics() []Metric {
	return []Metric{
		{
			Key:   "cpu",
			Label: "Total CPU Time (ms)",
			Title: "Total CPU Time: Headful vs Headless",
			Unit:  "ms",
			Value: func(r harness.SummaryRecord) int64 { return r.CPUTotal },
		},
		{
			Key:   "memory",
			Label: "Memory Usage (KB)",
			Title: "Memory Usage: Headful vs Headless",
			Unit:  "KB",
			Value: func(r harness.SummaryRecord) int64 { return r.Memory },
		},
		{
			Key:   "time",
			Label: "Elapsed Time (ms)",
			Title: "Elapsed Time: Headful vs Headless",
			Unit:  "ms",
			Value: func(r harness.SummaryRecord) int64 { return r.TimeMs },
		},
	}
}

var (
	headfulColor  = color.RGBA{R: 0x4b, G: 0x6b, B: 0x4a, A: 0xff}
	headlessColor = color.RGBA{R: 0xe2, G: 0xc7, B: 0x7a, A: 0xff}
)

// ModeColor returns the bar color of a mode.
func ModeColor(m harness.Mode) color.RGBA {
	if m == harness.Headful {
		return headfulColor
	}

	return headlessColor
}

// Renderer writes chart images into a results Store's directory.
type Renderer struct {
	Store *results.Store
	// Width and Height size each single-metric chart. The defaults give
	// 900x600 px at 96 DPI.
	Width  vg.Length
	Height vg.Length
	// Combined enables the composite image.
	Combined bool
	// CombinedTitle heads the composite image.
	CombinedTitle string
}

// NewRenderer returns a Renderer with default sizes and the composite
// enabled.
func NewRenderer(store *results.Store) *Renderer {
	return &Renderer{
		Store:         store,
		Width:         vg.Points(675),
		Height:        vg.Points(450),
		Combined:      true,
		CombinedTitle: "Browser Launch Cost: Headful vs Headless",
	}
}

// RenderAll writes one image per metric and, if enabled, the composite.
// It returns the paths written in order.
func (r *Renderer) RenderAll(set harness.ResultSet) ([]string, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	metrics := Metrics()
	plots := make([]*plot.Plot, 0, len(metrics))
	captions := make([]string, 0, len(metrics))
	paths := make([]string, 0, len(metrics)+1)

	for _, m := range metrics {
		p, err := MetricPlot(set, m)
		if err != nil {
			return nil, err
		}

		wt, err := p.WriterTo(r.Width, r.Height, "png")
		if err != nil {
			return nil, fmt.Errorf("encode %s chart: %w", m.Key, err)
		}

		path := r.Store.Path(m.File())
		if err := r.write(path, wt); err != nil {
			return nil, err
		}

		plots = append(plots, p)
		captions = append(captions, m.Label)
		paths = append(paths, path)
	}

	if r.Combined {
		path := r.Store.Path(CombinedFile)
		if err := r.write(path, r.combine(plots, captions)); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// MetricPlot builds the bar chart of one metric with one bar per mode in
// set order.
func MetricPlot(set harness.ResultSet, m Metric) (*plot.Plot, error) {
	bars, ticks, err := metricBars(set, m)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = m.Title
	p.X.Label.Text = ModeAxisLabel
	p.Y.Label.Text = m.Unit
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Legend.Top = true

	for _, bar := range bars {
		p.Add(bar)
	}

	// One dataset per chart; its swatch takes the first bar's color.
	if len(bars) > 0 {
		p.Legend.Add(m.Label, bars[0])
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

func metricBars(set harness.ResultSet, m Metric) ([]*plotter.BarChart, []plot.Tick, error) {
	bars := make([]*plotter.BarChart, 0, len(set))
	ticks := make([]plot.Tick, 0, len(set))

	for i, rec := range set {
		bar, err := plotter.NewBarChart(plotter.Values{float64(m.Value(rec))}, vg.Points(60))
		if err != nil {
			return nil, nil, fmt.Errorf("%s bar for %s: %w", m.Key, rec.Mode, err)
		}

		bar.Color = ModeColor(rec.Mode)
		bar.XMin = float64(i)

		bars = append(bars, bar)
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: string(rec.Mode)})
	}

	return bars, ticks, nil
}

// combine lays the metric plots out side by side under a shared title,
// with captions[i] written below plots[i].
func (r *Renderer) combine(plots []*plot.Plot, captions []string) vgimg.PngCanvas {
	titleHeight := vg.Points(36)
	captionHeight := vg.Points(24)

	img := vgimg.New(r.Width*vg.Length(len(plots)), r.Height+titleHeight)
	dc := draw.New(img)

	sty := plots[0].Title.TextStyle
	sty.Font.Size = vg.Points(16)
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Points(8)}, r.CombinedTitle)

	body := draw.Crop(dc, 0, 0, captionHeight, -titleHeight)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
	}

	capSty := plots[0].X.Label.TextStyle
	capSty.XAlign = draw.XCenter
	capSty.YAlign = draw.YCenter

	canvases := plot.Align([][]*plot.Plot{plots}, tiles, body)
	for i, p := range plots {
		c := canvases[0][i]
		p.Draw(c)

		if i < len(captions) {
			dc.FillText(capSty, vg.Point{X: c.Center().X, Y: dc.Min.Y + captionHeight/2}, captions[i])
		}
	}

	return vgimg.PngCanvas{Canvas: img}
}

func (r *Renderer) write(path string, wt io.WriterTo) error {
	f, err := r.Store.Fs().Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := wt.WriteTo(f); err != nil {
		f.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

// Render loads the persisted results from store and renders them. It
// returns the loaded set along with the paths written.
func Render(store *results.Store, combined bool) (harness.ResultSet, []string, error) {
	set, err := store.Load()
	if err != nil {
		return nil, nil, err
	}

	r := NewRenderer(store)
	r.Combined = combined

	paths, err := r.RenderAll(set)
	if err != nil {
		return nil, nil, err
	}

	return set, paths, nil
}
