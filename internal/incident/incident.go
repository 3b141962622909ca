// Package incident loads raw crime records and filters them down to the
// nighttime incidents the risk pipeline operates on.
package incident

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Incident is a single filtered crime report.
type Incident struct {
	Lon      float64
	Lat      float64
	Hour     int
	Category string
	Date     string
	Weight   float64
}

// Record is a raw crime record before filtering. Hour is kept unparsed
// because sources disagree on its format. Weight below zero means the
// source carried no explicit weight and it derives from the category.
type Record struct {
	Lon      float64
	Lat      float64
	Hour     string
	Category string
	Date     string
	Weight   float64
}

// severityWeights maps crime types to weights in severity order. Order
// matters: "felony assault" must match before "assault".
var severityWeights = []struct {
	category string
	weight   float64
}{
	{"murder", 1.0},
	{"rape", 0.95},
	{"shooting", 0.9},
	{"felony assault", 0.85},
	{"robbery", 0.8},
	{"assault", 0.7},
	{"burglary", 0.65},
	{"grand larceny", 0.6},
}

// defaultWeight applies to relevant categories without a severity entry.
const defaultWeight = 0.7

// WeightFor returns the severity weight for a crime category, matched by
// case-insensitive substring.
func WeightFor(category string) float64 {
	lower := strings.ToLower(category)
	for _, sw := range severityWeights {
		if strings.Contains(lower, sw.category) {
			return sw.weight
		}
	}
	return defaultWeight
}

// FilterConfig holds the incident filter parameters.
type FilterConfig struct {
	// NightStart and NightEnd bound the hour-of-day window, inclusive,
	// wrapping midnight when NightStart > NightEnd.
	NightStart int
	NightEnd   int
	// Categories are matched as case-insensitive substrings.
	Categories []string
	Bounds     orb.Bound
}

// DefaultFilterConfig returns the NYC nighttime-safety filter: 20:00-05:59,
// violent crime categories, NYC bounding box.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		NightStart: 20,
		NightEnd:   5,
		Categories: []string{
			"robbery", "assault", "burglary", "grand larceny",
			"felony assault", "rape", "murder", "shooting",
		},
		Bounds: orb.Bound{
			Min: orb.Point{-74.3, 40.4},
			Max: orb.Point{-73.7, 40.9},
		},
	}
}

// Filter keeps records that fall inside the night window, match a relevant
// category and carry valid in-bounds coordinates. Records missing required
// fields are skipped, never fatal.
func Filter(records []Record, cfg FilterConfig) []Incident {
	incidents := make([]Incident, 0, len(records))

	for _, r := range records {
		hour, ok := parseHour(r.Hour)
		if !ok || !inNightWindow(hour, cfg.NightStart, cfg.NightEnd) {
			continue
		}

		if !matchesCategory(r.Category, cfg.Categories) {
			continue
		}

		if r.Lon == 0 && r.Lat == 0 {
			continue
		}
		if !cfg.Bounds.Contains(orb.Point{r.Lon, r.Lat}) {
			continue
		}

		weight := r.Weight
		if weight < 0 || weight > 1 {
			weight = WeightFor(r.Category)
		}

		incidents = append(incidents, Incident{
			Lon:      r.Lon,
			Lat:      r.Lat,
			Hour:     hour,
			Category: r.Category,
			Date:     r.Date,
			Weight:   weight,
		})
	}

	return incidents
}

// parseHour extracts the hour from values like "23", "23:00" or "23:00:00".
func parseHour(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	if idx := strings.Index(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}
	hour, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

func inNightWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}

func matchesCategory(category string, relevant []string) bool {
	lower := strings.ToLower(category)
	for _, rel := range relevant {
		if strings.Contains(lower, rel) {
			return true
		}
	}
	return false
}
