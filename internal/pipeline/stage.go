package pipeline

import (
	"context"
	"time"

	"montage/internal/tilespec"
)

// Stage names in execution order.
const (
	StageFilter   = "filter"
	StageSift     = "sift"
	StageMatch    = "match"
	StageConcat   = "concat"
	StageOptimize = "optimize"
	StageRender   = "render"
)

// Request describes one alignment run. It is immutable once handed to the
// runner; there is no shared mutable argument state between stages.
type Request struct {
	// TileSpecPath is the original tile-spec document. It is read by the
	// filter stage and again, unfiltered, by the optimize stage.
	TileSpecPath string
	// WorkspaceDir receives all intermediate and final artifacts. Created if
	// absent; an empty value means the current directory.
	WorkspaceDir string
	// Region restricts which tiles enter the pipeline. Nil means no
	// filtering.
	Region *tilespec.Region
	// Render controls whether the optional render stage runs after
	// optimization.
	Render bool
	// OutputFileName names the render output. Relative names resolve inside
	// the workspace. Only consulted when Render is set.
	OutputFileName string
}

// StageResult reports one completed stage.
type StageResult struct {
	Stage    string
	Artifact string
	Duration time.Duration
}

// stage pairs a name with its execution closure. The closure returns the
// artifact path it produced.
type stage struct {
	name   string
	marker error
	run    func(context.Context) (string, error)
}
