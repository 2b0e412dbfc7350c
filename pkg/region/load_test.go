package region

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBoxLayerParsesRegions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.json")
	data := `[{"Name":"Ground","MinLat":40,"MaxLat":41,"MinLon":-120,"MaxLon":-119,"MinAlt":0,"MaxAlt":500}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write layer file: %v", err)
	}

	layer, err := LoadBoxLayer(path)
	if err != nil {
		t.Fatalf("LoadBoxLayer: %v", err)
	}
	name, ok := layer.Contains(40.5, -119.5, 0, 400)
	if !ok || name != "Ground" {
		t.Fatalf("expected Ground, got %q ok=%v", name, ok)
	}
}

func TestLoadLayersMissingFile(t *testing.T) {
	if _, err := LoadLayers([]string{"/nonexistent/layer.json"}); err == nil {
		t.Fatal("expected an error for a missing layer file")
	}
}
