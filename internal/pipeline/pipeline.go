package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"montage/internal/correspond"
	"montage/internal/fileutil"
	"montage/internal/filter"
	"montage/internal/ledger"
	"montage/internal/logging"
	"montage/internal/services"
	"montage/internal/services/render"
)

// Runner sequences the alignment pipeline: filter, sift, match, concat,
// optimize, and optionally render. Stages run strictly one after another;
// the first failure halts the run and leaves partial artifacts in the
// workspace for inspection.
type Runner struct {
	jar    render.Invoker
	logger *slog.Logger
	store  *ledger.Store
}

// Option configures the runner.
type Option func(*Runner)

// WithLedger enables run history recording.
func WithLedger(store *ledger.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// NewRunner constructs a pipeline runner around the external jar client.
func NewRunner(jar render.Invoker, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if jar == nil {
		return nil, errors.New("jar invoker is required")
	}
	runner := &Runner{
		jar:    jar,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run executes the pipeline for one request and returns the per-stage
// results. The workspace is locked for the duration of the run so no second
// run can interleave writes into the same directory tree.
func (r *Runner) Run(ctx context.Context, req Request) ([]StageResult, error) {
	if req.TileSpecPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "", "tile spec path required", nil)
	}
	if _, err := os.Stat(req.TileSpecPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "", "", "tile spec", err)
	}
	if req.WorkspaceDir == "" {
		req.WorkspaceDir = "."
	}

	layout := NewLayout(req.WorkspaceDir)
	if err := fileutil.EnsureDir(layout.WorkspaceDir); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "", "workspace", err)
	}

	lock := flock.New(layout.LockFile())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "", "acquire workspace lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "", "",
			fmt.Sprintf("workspace %s is owned by another run", layout.WorkspaceDir), nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	runCtx := services.WithRunID(ctx, runID)
	runLogger := logging.WithContext(runCtx, r.logger)

	runLogger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("tile_spec", req.TileSpecPath),
		logging.String("workspace", layout.WorkspaceDir),
		logging.Bool("render", req.Render),
		logging.String("region", regionLabel(req)),
	)

	if r.store != nil {
		if err := r.store.StartRun(runCtx, runID, req.TileSpecPath, layout.WorkspaceDir); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	results := make([]StageResult, 0, 6)
	for _, s := range r.stages(req, layout) {
		result, err := r.runStage(runCtx, runID, s)
		if err != nil {
			r.finishRun(runCtx, runID, ledger.StatusFailed, err)
			return results, err
		}
		results = append(results, result)
	}

	r.finishRun(runCtx, runID, ledger.StatusCompleted, nil)
	runLogger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("stages", len(results)),
		logging.String(logging.FieldArtifact, layout.OptimizedFile()),
	)
	return results, nil
}

// stages builds the linear stage list. Each stage's output path is the next
// stage's input; the optimize stage deliberately receives the original,
// unfiltered tile spec alongside the correspondence bundle.
func (r *Runner) stages(req Request, layout Layout) []stage {
	list := []stage{
		{
			name:   StageFilter,
			marker: services.ErrValidation,
			run: func(ctx context.Context) (string, error) {
				return filter.Run(req.TileSpecPath, layout.FilterDir(), req.Region)
			},
		},
		{
			name:   StageSift,
			marker: services.ErrExternalTool,
			run: func(ctx context.Context) (string, error) {
				if err := r.jar.ComputeSiftFeatures(ctx, layout.FilterDir(), layout.SiftDir()); err != nil {
					return "", err
				}
				return layout.SiftDir(), nil
			},
		},
		{
			name:   StageMatch,
			marker: services.ErrExternalTool,
			run: func(ctx context.Context) (string, error) {
				if err := r.jar.MatchSiftFeatures(ctx, layout.FilterDir(), layout.SiftDir(), layout.MatchDir()); err != nil {
					return "", err
				}
				return layout.MatchDir(), nil
			},
		},
		{
			name:   StageConcat,
			marker: services.ErrValidation,
			run: func(ctx context.Context) (string, error) {
				if _, err := correspond.Concat(layout.MatchDir(), layout.CorrespondenceFile()); err != nil {
					return "", err
				}
				return layout.CorrespondenceFile(), nil
			},
		},
		{
			name:   StageOptimize,
			marker: services.ErrExternalTool,
			run: func(ctx context.Context) (string, error) {
				err := r.jar.OptimizeMontageTransform(ctx, layout.CorrespondenceFile(), req.TileSpecPath, layout.OptimizedFile())
				if err != nil {
					return "", err
				}
				return layout.OptimizedFile(), nil
			},
		},
	}

	if req.Render {
		list = append(list, stage{
			name:   StageRender,
			marker: services.ErrExternalTool,
			run: func(ctx context.Context) (string, error) {
				out := layout.OutputFile(req.OutputFileName)
				if err := r.jar.Render(ctx, layout.OptimizedFile(), out); err != nil {
					return "", err
				}
				return out, nil
			},
		})
	}
	return list
}

func (r *Runner) runStage(ctx context.Context, runID string, s stage) (StageResult, error) {
	stageCtx := services.WithStage(ctx, s.name)
	stageLogger := logging.WithContext(stageCtx, r.logger)

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)

	start := time.Now()
	artifact, err := s.run(stageCtx)
	duration := time.Since(start)

	if err != nil {
		// Component errors already carry a services marker; raw jar errors
		// get tagged here.
		wrapped := err
		if !errors.Is(err, services.ErrExternalTool) &&
			!errors.Is(err, services.ErrValidation) &&
			!errors.Is(err, services.ErrConfiguration) &&
			!errors.Is(err, services.ErrNotFound) {
			wrapped = services.Wrap(s.marker, s.name, "", "", err)
		}

		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Duration("duration", duration),
			logging.Error(wrapped),
		)
		r.recordStage(stageCtx, ledger.StageRecord{
			RunID:     runID,
			Stage:     s.name,
			Status:    ledger.StatusFailed,
			Duration:  duration,
			StartedAt: start,
		})
		return StageResult{}, wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", duration),
		logging.String(logging.FieldArtifact, artifact),
	)
	r.recordStage(stageCtx, ledger.StageRecord{
		RunID:     runID,
		Stage:     s.name,
		Artifact:  artifact,
		Status:    ledger.StatusCompleted,
		Duration:  duration,
		StartedAt: start,
	})
	return StageResult{Stage: s.name, Artifact: artifact, Duration: duration}, nil
}

// recordStage is best-effort: a ledger hiccup must not fail a pipeline whose
// artifacts are already on disk.
func (r *Runner) recordStage(ctx context.Context, rec ledger.StageRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.RecordStage(ctx, rec); err != nil {
		logging.WithContext(ctx, r.logger).Warn("failed to record stage in ledger", logging.Error(err))
	}
}

func (r *Runner) finishRun(ctx context.Context, runID string, status ledger.Status, runErr error) {
	if r.store == nil {
		return
	}
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	if err := r.store.FinishRun(ctx, runID, status, message); err != nil {
		logging.WithContext(ctx, r.logger).Warn("failed to record run completion", logging.Error(err))
	}
}

func regionLabel(req Request) string {
	if req.Region == nil {
		return "unbounded"
	}
	return req.Region.String()
}
