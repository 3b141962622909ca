package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/saferoute-nyc/saferoute/internal/risk"
)

// WritePolygons writes the risk polygon snapshot to path.
func WritePolygons(path string, polygons []risk.Polygon, metadata map[string]interface{}) error {
	features := make([]*geojson.Feature, 0, len(polygons))
	for _, p := range polygons {
		features = append(features, p.Feature())
	}
	return writeCollection(path, features, metadata)
}

// WriteHeatmap writes the heatmap snapshot to path.
func WriteHeatmap(path string, features []*geojson.Feature, metadata map[string]interface{}) error {
	return writeCollection(path, features, metadata)
}

func writeCollection(path string, features []*geojson.Feature, metadata map[string]interface{}) error {
	if features == nil {
		features = []*geojson.Feature{}
	}

	data, err := json.MarshalIndent(Collection{
		Type:     "FeatureCollection",
		Features: features,
		Metadata: metadata,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return atomicWrite(path, data)
}

// atomicWrite replaces path in a single rename so a concurrent reader only
// ever observes a complete file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
