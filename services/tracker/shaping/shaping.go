package shaping

import (
	"fmt"
	"sort"
	"time"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

// The API publishes minute-precision UTC timestamps such as 2024-05-01T00:30Z.
var timestampLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

// ParseTimestamp parses an API timestamp into a UTC time.
func ParseTimestamp(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, lastErr)
}

// BuildIntensityRows flattens intensity entries into table rows, one per entry, in input order.
func BuildIntensityRows(entries []models.IntensityEntry) ([]models.IntensityReading, error) {
	rows := make([]models.IntensityReading, 0, len(entries))
	for i, entry := range entries {
		from, err := ParseTimestamp(entry.From)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		to, err := ParseTimestamp(entry.To)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if !from.Before(to) {
			return nil, fmt.Errorf("entry %d: interval start %s is not before end %s", i, entry.From, entry.To)
		}

		rows = append(rows, models.IntensityReading{
			From:     from,
			To:       to,
			Forecast: entry.Intensity.Forecast,
			Actual:   copyInt(entry.Intensity.Actual),
			Index:    entry.Intensity.Index,
		})
	}
	return rows, nil
}

// BuildGenerationMixRows loads the fuel list as-is. Repeated fuels are merged into the
// first occurrence so the table holds one row per fuel.
func BuildGenerationMixRows(fuels []models.GenerationFuel) []models.GenerationMixEntry {
	rows := make([]models.GenerationMixEntry, 0, len(fuels))
	seen := make(map[string]int, len(fuels))
	for _, f := range fuels {
		if idx, ok := seen[f.Fuel]; ok {
			rows[idx].Perc += f.Perc
			continue
		}
		seen[f.Fuel] = len(rows)
		rows = append(rows, models.GenerationMixEntry{Fuel: f.Fuel, Perc: f.Perc})
	}
	return rows
}

// SortMixDescending returns a copy of rows ordered by percentage, largest first.
func SortMixDescending(rows []models.GenerationMixEntry) []models.GenerationMixEntry {
	out := make([]models.GenerationMixEntry, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Perc != out[j].Perc {
			return out[i].Perc > out[j].Perc
		}
		return out[i].Fuel < out[j].Fuel
	})
	return out
}

// MixTotal sums the percentage column.
func MixTotal(rows []models.GenerationMixEntry) float64 {
	var total float64
	for _, r := range rows {
		total += r.Perc
	}
	return total
}

// CurrentReading picks the reading covering now, falling back to the latest one that
// already started. ok is false when every reading lies in the future.
func CurrentReading(rows []models.IntensityReading, now time.Time) (reading models.IntensityReading, ok bool) {
	for _, r := range rows {
		if !now.Before(r.From) && now.Before(r.To) {
			return r, true
		}
		if !now.Before(r.From) && (!ok || r.From.After(reading.From)) {
			reading, ok = r, true
		}
	}
	return reading, ok
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	val := *v
	return &val
}
