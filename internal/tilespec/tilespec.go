// Package tilespec models the JSON tile-specification documents consumed by
// the alignment pipeline: one entry per image tile with its bounding box,
// mipmap image references, and transform chain.
package tilespec

import (
	"encoding/json"
	"fmt"
	"os"

	"montage/internal/fileutil"
)

// ImageRef points at one mipmap level of a tile image.
type ImageRef struct {
	ImageURL string `json:"imageUrl"`
	MaskURL  string `json:"maskUrl,omitempty"`
}

// Transform is a serialized geometric transform applied to a tile.
type Transform struct {
	ClassName  string `json:"className"`
	DataString string `json:"dataString"`
}

// Tile describes a single image tile to be aligned against its neighbors.
// BBox is [minX, maxX, minY, maxY] in world coordinates.
type Tile struct {
	MipmapLevels map[string]ImageRef `json:"mipmapLevels"`
	Width        float64             `json:"width,omitempty"`
	Height       float64             `json:"height,omitempty"`
	BBox         []float64           `json:"bbox"`
	Transforms   []Transform         `json:"transforms,omitempty"`
}

// Bounds returns the tile bounding box as a Region. The second return value
// is false when the tile carries no usable bbox.
func (t Tile) Bounds() (Region, bool) {
	if len(t.BBox) != 4 {
		return Region{}, false
	}
	return Region{MinX: t.BBox[0], MaxX: t.BBox[1], MinY: t.BBox[2], MaxY: t.BBox[3]}, true
}

// Spec is an ordered collection of tiles, serialized as a JSON array.
type Spec []Tile

// Load reads and parses a tile-spec document.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tile spec: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse tile spec %s: %w", path, err)
	}
	return spec, nil
}

// Save writes the spec to path atomically. An empty spec serializes as [] so
// downstream stages always receive a parseable document.
func (s Spec) Save(path string) error {
	if s == nil {
		s = Spec{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tile spec: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write tile spec: %w", err)
	}
	return nil
}
