package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/shaping"
)

// Source is the upstream the dashboard reads on every render.
type Source interface {
	TodayIntensity(ctx context.Context) (models.IntensityResponse, error)
	GenerationMix(ctx context.Context) (models.GenerationResponse, error)
}

// Page is everything the template needs for one render pass.
type Page struct {
	View           View
	Nav            []NavItem
	LastUpdated    string
	RefreshSeconds int
	RefreshLabel   string
	Intensity      *IntensityPanel
	Mix            *MixPanel
	Error          string
}

// NavItem is a sidebar entry.
type NavItem struct {
	View     View
	Label    string
	Selected bool
}

// IntensityPanel holds the "Today's Intensity" chart and table.
type IntensityPanel struct {
	Chart  template.HTML
	Notice string
	Rows   []models.IntensityReading
}

// MixPanel holds the "Generation Mix" chart and table. Bars is the chart order,
// Rows the table order as published.
type MixPanel struct {
	Chart template.HTML
	Bars  []models.GenerationMixEntry
	Rows  []models.GenerationMixEntry
	Total float64
}

// Dashboard runs the fetch, shape and render sequence. It keeps no data between renders.
type Dashboard struct {
	source  Source
	refresh time.Duration
	now     func() time.Time
	logger  *logrus.Logger
}

// New creates a dashboard reading from source.
func New(source Source, refresh time.Duration, logger *logrus.Logger) *Dashboard {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dashboard{
		source:  source,
		refresh: refresh,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock overrides the clock used for the "last updated" stamp.
func (d *Dashboard) WithClock(now func() time.Time) *Dashboard {
	d.now = now
	return d
}

// Build fetches the data for view and assembles the page. Only the selected view's
// endpoint is called.
func (d *Dashboard) Build(ctx context.Context, view View) (*Page, error) {
	page := d.basePage(view)

	switch view {
	case ViewIntensity:
		panel, err := d.intensityPanel(ctx)
		if err != nil {
			return nil, err
		}
		page.Intensity = panel
	case ViewGeneration:
		panel, err := d.mixPanel(ctx)
		if err != nil {
			return nil, err
		}
		page.Mix = panel
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
	return page, nil
}

// ErrorPage returns a page that shows err in place of the view content.
func (d *Dashboard) ErrorPage(view View, err error) *Page {
	page := d.basePage(view)
	page.Error = err.Error()
	return page
}

// Render builds the page for view and returns its HTML. When building fails the
// returned bytes hold the error page and err is non-nil.
func (d *Dashboard) Render(ctx context.Context, view View) ([]byte, error) {
	page, buildErr := d.Build(ctx, view)
	if buildErr != nil {
		d.logger.WithError(buildErr).WithField("view", view).Error("dashboard render failed")
		page = d.ErrorPage(view, buildErr)
	}

	var buf bytes.Buffer
	if err := WritePage(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), buildErr
}

// WritePage executes the page template into w.
func WritePage(w io.Writer, page *Page) error {
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("execute page template: %w", err)
	}
	return nil
}

func (d *Dashboard) basePage(view View) *Page {
	nav := make([]NavItem, 0, len(Views))
	for _, v := range Views {
		nav = append(nav, NavItem{View: v, Label: v.Label(), Selected: v == view})
	}
	return &Page{
		View:           view,
		Nav:            nav,
		LastUpdated:    d.now().Format("2006-01-02 15:04:05"),
		RefreshSeconds: int(d.refresh / time.Second),
		RefreshLabel:   durationLabel(d.refresh),
	}
}

func (d *Dashboard) intensityPanel(ctx context.Context) (*IntensityPanel, error) {
	payload, err := d.source.TodayIntensity(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := shaping.BuildIntensityRows(payload.Data)
	if err != nil {
		return nil, err
	}

	panel := &IntensityPanel{Rows: rows}
	switch len(rows) {
	case 0:
		panel.Notice = "No intensity data published for today yet."
	case 1:
		panel.Notice = "Only one half-hour block has been published so far."
	default:
		svg, err := IntensityChartSVG(rows)
		if err != nil {
			return nil, err
		}
		panel.Chart = template.HTML(svg)
	}
	return panel, nil
}

func (d *Dashboard) mixPanel(ctx context.Context) (*MixPanel, error) {
	payload, err := d.source.GenerationMix(ctx)
	if err != nil {
		return nil, err
	}
	rows := shaping.BuildGenerationMixRows(payload.Data.GenerationMix)

	panel := &MixPanel{
		Rows:  rows,
		Bars:  shaping.SortMixDescending(rows),
		Total: shaping.MixTotal(rows),
	}
	if len(panel.Bars) > 0 {
		svg, err := MixChartSVG(panel.Bars)
		if err != nil {
			return nil, err
		}
		panel.Chart = template.HTML(svg)
	}
	return panel, nil
}

func durationLabel(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		mins := int(d / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	return d.String()
}
