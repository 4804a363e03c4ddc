package pipeline

import "path/filepath"

// Workspace-relative artifact names. The directory spellings (including
// "filterd") are kept from the legacy driver layout so existing tooling that
// inspects workspaces keeps working.
const (
	filterDirName          = "filterd"
	siftDirName            = "sifts"
	matchDirName           = "sift_matches"
	correspondenceFileName = "all_correspondent.json"
	optimizedFileName      = "optimized_montage.json"
	lockFileName           = "montage.lock"
)

// Layout maps the fixed artifact names onto one workspace directory. Every
// stage owns a distinct path under the workspace; no two stages share one.
type Layout struct {
	WorkspaceDir string
}

// NewLayout builds the artifact layout for a workspace directory.
func NewLayout(workspaceDir string) Layout {
	return Layout{WorkspaceDir: workspaceDir}
}

// FilterDir holds the filtered tile-spec produced by the filter stage.
func (l Layout) FilterDir() string {
	return filepath.Join(l.WorkspaceDir, filterDirName)
}

// SiftDir holds one feature artifact per filtered tile.
func (l Layout) SiftDir() string {
	return filepath.Join(l.WorkspaceDir, siftDirName)
}

// MatchDir holds one match artifact per overlapping tile pair.
func (l Layout) MatchDir() string {
	return filepath.Join(l.WorkspaceDir, matchDirName)
}

// CorrespondenceFile is the merged match bundle consumed by the optimizer.
func (l Layout) CorrespondenceFile() string {
	return filepath.Join(l.WorkspaceDir, correspondenceFileName)
}

// OptimizedFile is the final montage transform solution.
func (l Layout) OptimizedFile() string {
	return filepath.Join(l.WorkspaceDir, optimizedFileName)
}

// LockFile guards the workspace against concurrent runs.
func (l Layout) LockFile() string {
	return filepath.Join(l.WorkspaceDir, lockFileName)
}

// OutputFile resolves a render output name: absolute paths pass through,
// relative names land in the workspace.
func (l Layout) OutputFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.WorkspaceDir, name)
}
