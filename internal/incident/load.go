package incident

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Column name candidates for tabular sources, tried in order.
var (
	timeColumns     = []string{"cmplnt_fr_tm", "hour", "time", "complaint_time"}
	categoryColumns = []string{"ofns_desc", "category", "offense", "crime_type"}
	dateColumns     = []string{"cmplnt_fr_dt", "date", "complaint_date"}
)

// Load reads raw records from a GeoJSON or CSV file, dispatching on the
// file extension.
func Load(path string) ([]Record, error) {
	switch ext := filepath.Ext(path); ext {
	case ".geojson":
		return LoadGeoJSON(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// LoadGeoJSON reads point features from a GeoJSON feature collection.
// Non-point features are skipped.
func LoadGeoJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	records := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		records = append(records, Record{
			Lon:      pt[0],
			Lat:      pt[1],
			Hour:     propString(f.Properties, "hour"),
			Category: propString(f.Properties, "category"),
			Date:     propString(f.Properties, "date"),
			Weight:   propWeight(f.Properties),
		})
	}
	return records, nil
}

// LoadCSV reads a tabular source, detecting coordinate, time, category and
// date columns heuristically. Rows with unparsable or (0,0) coordinates are
// skipped.
func LoadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	names := make([]string, len(header))
	columns := make(map[string]int, len(header))
	for i, name := range header {
		names[i] = strings.ToLower(strings.TrimSpace(name))
		columns[names[i]] = i
	}

	lngIdx, latIdx, err := findCoordinateColumns(names)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if lngIdx >= len(row) || latIdx >= len(row) {
			continue
		}

		lng, errLng := strconv.ParseFloat(strings.TrimSpace(row[lngIdx]), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		if errLng != nil || errLat != nil {
			continue
		}
		if lng == 0 && lat == 0 {
			continue
		}

		category := columnValue(row, columns, categoryColumns)
		if category == "" {
			category = "unknown"
		} else {
			category = strings.ToLower(category)
		}

		records = append(records, Record{
			Lon:      lng,
			Lat:      lat,
			Hour:     clockValue(row, columns, timeColumns),
			Category: category,
			Date:     columnValue(row, columns, dateColumns),
			Weight:   WeightFor(category),
		})
	}
	return records, nil
}

// findCoordinateColumns locates longitude/latitude columns in header order:
// exact or prefix matches first, then any column containing lon/lat.
func findCoordinateColumns(names []string) (lngIdx, latIdx int, err error) {
	lngIdx, latIdx = -1, -1

	for idx, name := range names {
		switch {
		case name == "longitude" || (strings.HasPrefix(name, "longitude") && !strings.Contains(name, "lat")):
			lngIdx = idx
		case name == "latitude" || (strings.HasPrefix(name, "latitude") && !strings.Contains(name, "lon")):
			latIdx = idx
		}
	}

	if lngIdx < 0 || latIdx < 0 {
		for idx, name := range names {
			switch {
			case lngIdx < 0 && (strings.Contains(name, "longitude") ||
				(strings.Contains(name, "lon") && !strings.Contains(name, "lat"))):
				lngIdx = idx
			case latIdx < 0 && (strings.Contains(name, "latitude") ||
				(strings.Contains(name, "lat") && !strings.Contains(name, "lon"))):
				latIdx = idx
			}
		}
	}

	if lngIdx < 0 || latIdx < 0 {
		return -1, -1, fmt.Errorf("could not find longitude/latitude columns, found: %s", strings.Join(names, ", "))
	}
	return lngIdx, latIdx, nil
}

// columnValue returns the first non-empty value among candidate columns.
func columnValue(row []string, columns map[string]int, candidates []string) string {
	for _, name := range candidates {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			return v
		}
	}
	return ""
}

// clockValue returns the first candidate value in clock format ("HH:MM" or
// "HH:MM:SS"). Plain numbers are not trusted as hours in tabular sources.
func clockValue(row []string, columns map[string]int, candidates []string) string {
	for _, name := range candidates {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if strings.Contains(v, ":") {
			return v
		}
	}
	return ""
}

// propString renders a GeoJSON property as a string, tolerating numeric
// values for fields like hour.
func propString(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

// propWeight returns the explicit weight property, or -1 when absent so the
// filter derives it from the category.
func propWeight(props geojson.Properties) float64 {
	if v, ok := props["weight"].(float64); ok {
		return v
	}
	return -1
}
