package region

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadBoxLayer reads a JSON-encoded list of Regions from path and returns
// them as a BoxLayer. This is the concrete, in-scope counterpart to the
// KML/geodesic region libraries spec.md's Non-goals exclude: an operator
// who needs real polygon geometry wires their own Layer implementation,
// but a box-bounded layer needs nothing more than this file format.
func LoadBoxLayer(path string) (BoxLayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BoxLayer{}, fmt.Errorf("region: read %s: %w", path, err)
	}
	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return BoxLayer{}, fmt.Errorf("region: parse %s: %w", path, err)
	}
	return BoxLayer{Regions: regions}, nil
}

// LoadLayers loads every path in paths as a JSON BoxLayer, in order. The
// resulting slice's index is the layer index Flight.InsideRegions uses.
func LoadLayers(paths []string) ([]Layer, error) {
	layers := make([]Layer, 0, len(paths))
	for _, p := range paths {
		layer, err := LoadBoxLayer(p)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
