package models

import "time"

// IntensityResponse models the payload of GET /intensity/date.
type IntensityResponse struct {
	Data []IntensityEntry `json:"data"`
}

// IntensityEntry is one half-hour block as published by the API.
type IntensityEntry struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Intensity IntensityValue `json:"intensity"`
}

// IntensityValue holds the nested forecast/actual/index fields.
type IntensityValue struct {
	Forecast int    `json:"forecast"`
	Actual   *int   `json:"actual"`
	Index    string `json:"index"`
}

// GenerationResponse models the payload of GET /generation.
type GenerationResponse struct {
	Data GenerationData `json:"data"`
}

// GenerationData wraps the generation mix for the current half hour.
type GenerationData struct {
	From          string           `json:"from"`
	To            string           `json:"to"`
	GenerationMix []GenerationFuel `json:"generationmix"`
}

// GenerationFuel is a single fuel share from the feed.
type GenerationFuel struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

// IntensityReading is the flattened row shown in the intensity table.
type IntensityReading struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Forecast int       `json:"forecast"`
	Actual   *int      `json:"actual"`
	Index    string    `json:"index"`
}

// GenerationMixEntry is the flattened row shown in the generation mix table.
type GenerationMixEntry struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

// IntensitySnapshot is an archived reading together with its retrieval time.
type IntensitySnapshot struct {
	IntensityReading
	RetrievedAt time.Time `json:"retrieved_at"`
}
