package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/dashboard"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/shaping"
)

// Archive persists fetched readings.
type Archive interface {
	ArchiveIntensity(ctx context.Context, rows []models.IntensityReading, retrievedAt time.Time) error
	ArchiveGenerationMix(ctx context.Context, rows []models.GenerationMixEntry, retrievedAt time.Time) error
}

// Publisher forwards the latest readings.
type Publisher interface {
	PublishReading(r models.IntensityReading) error
	PublishMix(rows []models.GenerationMixEntry, retrievedAt time.Time) error
}

// Options configures a Watcher. Archive and Publisher are optional.
type Options struct {
	Source    dashboard.Source
	Archive   Archive
	Publisher Publisher
	Interval  time.Duration
	DryRun    bool
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Watcher periodically fetches both endpoints and hands the shaped rows to its sinks.
type Watcher struct {
	source    dashboard.Source
	archive   Archive
	publisher Publisher
	interval  time.Duration
	dryRun    bool
	logger    *logrus.Logger
	now       func() time.Time
}

// Result summarises one pass.
type Result struct {
	RetrievedAt    time.Time
	Readings       int
	Fuels          int
	Archived       bool
	PublishedCount int
}

// New creates a Watcher from opts.
func New(opts Options) *Watcher {
	w := &Watcher{
		source:    opts.Source,
		archive:   opts.Archive,
		publisher: opts.Publisher,
		interval:  opts.Interval,
		dryRun:    opts.DryRun,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if w.logger == nil {
		w.logger = logrus.StandardLogger()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// RunOnce fetches intensity then generation mix, archives and publishes them.
func (w *Watcher) RunOnce(ctx context.Context) (Result, error) {
	retrievedAt := w.now().UTC().Truncate(time.Second)
	res := Result{RetrievedAt: retrievedAt}

	intensity, err := w.source.TodayIntensity(ctx)
	if err != nil {
		return res, err
	}
	readings, err := shaping.BuildIntensityRows(intensity.Data)
	if err != nil {
		return res, fmt.Errorf("shape intensity: %w", err)
	}
	res.Readings = len(readings)

	mix, err := w.source.GenerationMix(ctx)
	if err != nil {
		return res, err
	}
	fuels := shaping.BuildGenerationMixRows(mix.Data.GenerationMix)
	res.Fuels = len(fuels)

	w.logger.Infof("fetched %d readings and %d fuels (retrieval=%s)", len(readings), len(fuels), retrievedAt.Format(time.RFC3339))

	if w.archive != nil {
		if w.dryRun {
			w.logger.Infof("dry-run: skipping archive (%d readings, %d fuels)", len(readings), len(fuels))
		} else {
			if err := w.archive.ArchiveIntensity(ctx, readings, retrievedAt); err != nil {
				return res, fmt.Errorf("archive intensity: %w", err)
			}
			if err := w.archive.ArchiveGenerationMix(ctx, fuels, retrievedAt); err != nil {
				return res, fmt.Errorf("archive generation mix: %w", err)
			}
			res.Archived = true
		}
	}

	if w.publisher != nil {
		if current, ok := shaping.CurrentReading(readings, retrievedAt); ok {
			if err := w.publisher.PublishReading(current); err != nil {
				return res, err
			}
			res.PublishedCount++
		} else {
			w.logger.Warn("no reading covers the current time, skipping intensity publish")
		}
		if len(fuels) > 0 {
			if err := w.publisher.PublishMix(fuels, retrievedAt); err != nil {
				return res, err
			}
			res.PublishedCount++
		}
	}

	return res, nil
}

// Run calls RunOnce immediately and then on every interval until ctx is done.
// A failed pass is logged and the loop carries on.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("watcher interval must be positive, got %s", w.interval)
	}

	w.pass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Watcher) pass(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.WithError(err).Error("watcher pass failed")
		return
	}
	w.logger.WithFields(logrus.Fields{
		"readings":  res.Readings,
		"fuels":     res.Fuels,
		"archived":  res.Archived,
		"published": res.PublishedCount,
	}).Info("watcher pass complete")
}
