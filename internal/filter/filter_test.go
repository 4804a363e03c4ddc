package filter

import (
	"os"
	"path/filepath"
	"testing"

	"montage/internal/tilespec"
)

func writeSpec(t *testing.T, dir string, spec tilespec.Spec) string {
	t.Helper()
	path := filepath.Join(dir, "tiles.json")
	if err := spec.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func twoTileSpec() tilespec.Spec {
	return tilespec.Spec{
		{
			MipmapLevels: map[string]tilespec.ImageRef{"0": {ImageURL: "file:///data/t0.bmp"}},
			BBox:         []float64{0, 100, 0, 100},
		},
		{
			MipmapLevels: map[string]tilespec.ImageRef{"0": {ImageURL: "file:///data/t1.bmp"}},
			BBox:         []float64{90, 190, 0, 100},
		},
	}
}

func TestRunNilRegionKeepsAllTiles(t *testing.T) {
	dir := t.TempDir()
	specPath := writeSpec(t, dir, twoTileSpec())
	outDir := filepath.Join(dir, "filterd")

	outPath, err := Run(specPath, outDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(outPath) != "tiles.json" {
		t.Fatalf("filtered spec keeps the input base name, got %s", outPath)
	}

	filtered, err := tilespec.Load(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Fatalf("identity filter expected 2 tiles, got %d", len(filtered))
	}
}

func TestRunCoveringRegionIsIdentity(t *testing.T) {
	dir := t.TempDir()
	specPath := writeSpec(t, dir, twoTileSpec())

	region, err := tilespec.ParseRegion("-1000 1000 -1000 1000")
	if err != nil {
		t.Fatal(err)
	}

	outPath, err := Run(specPath, filepath.Join(dir, "filterd"), region)
	if err != nil {
		t.Fatal(err)
	}
	filtered, err := tilespec.Load(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Fatalf("covering box expected 2 tiles, got %d", len(filtered))
	}
}

func TestRunExcludingRegionYieldsEmptySpec(t *testing.T) {
	dir := t.TempDir()
	specPath := writeSpec(t, dir, twoTileSpec())

	region, err := tilespec.ParseRegion("5000 6000 5000 6000")
	if err != nil {
		t.Fatal(err)
	}

	outPath, err := Run(specPath, filepath.Join(dir, "filterd"), region)
	if err != nil {
		t.Fatal(err)
	}
	filtered, err := tilespec.Load(outPath)
	if err != nil {
		t.Fatalf("empty filtered spec must still parse: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("excluding box expected 0 tiles, got %d", len(filtered))
	}
}

func TestRunPartialOverlap(t *testing.T) {
	dir := t.TempDir()
	specPath := writeSpec(t, dir, twoTileSpec())

	// Only the first tile intersects [0,50]x[0,50].
	region := &tilespec.Region{MinX: 0, MaxX: 50, MinY: 0, MaxY: 50}

	outPath, err := Run(specPath, filepath.Join(dir, "filterd"), region)
	if err != nil {
		t.Fatal(err)
	}
	filtered, err := tilespec.Load(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 tile, got %d", len(filtered))
	}
	if filtered[0].MipmapLevels["0"].ImageURL != "file:///data/t0.bmp" {
		t.Fatalf("wrong tile kept: %+v", filtered[0])
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	dir := t.TempDir()
	specPath := writeSpec(t, dir, twoTileSpec())

	before, err := os.ReadFile(specPath)
	if err != nil {
		t.Fatal(err)
	}

	region := &tilespec.Region{MinX: 5000, MaxX: 6000, MinY: 5000, MaxY: 6000}
	if _, err := Run(specPath, filepath.Join(dir, "filterd"), region); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(specPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("input tile spec was modified by filtering")
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := Run(filepath.Join(dir, "absent.json"), filepath.Join(dir, "filterd"), nil); err == nil {
		t.Fatal("expected error for missing input spec")
	}
}
