package dashboard

import "fmt"

// View selects which panel the dashboard renders.
type View string

const (
	ViewIntensity  View = "intensity"
	ViewGeneration View = "generation"
)

// Views lists the sidebar entries in display order.
var Views = []View{ViewIntensity, ViewGeneration}

// Label is the sidebar text for the view.
func (v View) Label() string {
	switch v {
	case ViewIntensity:
		return "Today's Intensity"
	case ViewGeneration:
		return "Generation Mix"
	default:
		return string(v)
	}
}

// ParseView maps a query value to a View. An empty value selects the intensity view.
func ParseView(raw string) (View, error) {
	switch View(raw) {
	case "", ViewIntensity:
		return ViewIntensity, nil
	case ViewGeneration:
		return ViewGeneration, nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}
