// Package filter implements the first pipeline stage: deriving a filtered
// tile-spec containing only the tiles whose bounding box intersects the
// requested region. The input document is never mutated.
package filter

import (
	"path/filepath"

	"montage/internal/fileutil"
	"montage/internal/services"
	"montage/internal/tilespec"
)

// Run reads the tile spec at specPath and writes the filtered copy into
// outDir under the same base name, returning the filtered spec path. A nil
// region keeps every tile. Tiles without a usable bbox are kept; only an
// explicit non-intersecting box excludes a tile.
func Run(specPath, outDir string, region *tilespec.Region) (string, error) {
	spec, err := tilespec.Load(specPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "filter", "load", "", err)
	}

	if err := fileutil.EnsureDir(outDir); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "filter", "prepare", "", err)
	}

	filtered := make(tilespec.Spec, 0, len(spec))
	for _, tile := range spec {
		if region == nil {
			filtered = append(filtered, tile)
			continue
		}
		bounds, ok := tile.Bounds()
		if !ok || region.Intersects(bounds) {
			filtered = append(filtered, tile)
		}
	}

	outPath := filepath.Join(outDir, filepath.Base(specPath))
	if err := filtered.Save(outPath); err != nil {
		return "", services.Wrap(services.ErrValidation, "filter", "write", "", err)
	}
	return outPath, nil
}
