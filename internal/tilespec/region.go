package tilespec

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a rectangular bounding box used to restrict which tiles enter the
// pipeline. A nil *Region means no filtering; there is no numeric sentinel
// for "unbounded".
type Region struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// ParseRegion parses a "minX maxX minY maxY" string. An empty or blank input
// yields a nil region, meaning no filtering is requested.
func ParseRegion(value string) (*Region, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 4 {
		return nil, fmt.Errorf("bounding box: expected 4 values \"minX maxX minY maxY\", got %d", len(fields))
	}

	parsed := make([]float64, 4)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("bounding box: invalid value %q", field)
		}
		parsed[i] = v
	}

	region := &Region{MinX: parsed[0], MaxX: parsed[1], MinY: parsed[2], MaxY: parsed[3]}
	if region.MinX > region.MaxX || region.MinY > region.MaxY {
		return nil, fmt.Errorf("bounding box: min exceeds max in %q", trimmed)
	}
	return region, nil
}

// Intersects reports whether the region overlaps other. Touching edges count
// as overlap, matching how adjacent tiles share a border.
func (r Region) Intersects(other Region) bool {
	return r.MinX <= other.MaxX && other.MinX <= r.MaxX &&
		r.MinY <= other.MaxY && other.MinY <= r.MaxY
}

// String renders the region in the same "minX maxX minY maxY" form accepted
// by ParseRegion.
func (r Region) String() string {
	return fmt.Sprintf("%s %s %s %s",
		formatCoord(r.MinX), formatCoord(r.MaxX), formatCoord(r.MinY), formatCoord(r.MaxY))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
