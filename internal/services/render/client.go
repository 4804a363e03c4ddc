package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"montage/internal/fileutil"
)

var commandContext = exec.CommandContext

// Entry-point classes inside the alignment jar.
const (
	classComputeSift = "org.janelia.alignment.ComputeSiftFeatures"
	classMatchSift   = "org.janelia.alignment.MatchSiftFeatures"
	classOptimize    = "org.janelia.alignment.OptimizeMontageTransform"
	classRender      = "org.janelia.alignment.Render"
)

// Invoker defines the external jar behaviour the pipeline depends on. Every
// call blocks until the subprocess exits; success is signaled solely by a
// zero exit status and the presence of the agreed output path.
type Invoker interface {
	ComputeSiftFeatures(ctx context.Context, tilesDir, outDir string) error
	MatchSiftFeatures(ctx context.Context, tilesDir, siftDir, outDir string) error
	OptimizeMontageTransform(ctx context.Context, correspondenceFile, tileSpecPath, outFile string) error
	Render(ctx context.Context, montageFile, outFile string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithJavaBinary overrides the default java executable name.
func WithJavaBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.javaBinary = binary
		}
	}
}

// WithHeap sets a JVM heap argument such as "-Xmx4g".
func WithHeap(heap string) Option {
	return func(c *CLI) {
		c.heap = strings.TrimSpace(heap)
	}
}

// CLI wraps the alignment jar invoked through the java command line.
type CLI struct {
	javaBinary string
	jarPath    string
	heap       string
}

// NewCLI constructs a jar client. The jar path is required; everything else
// defaults to a plain `java -cp <jar>` invocation.
func NewCLI(jarPath string, opts ...Option) (*CLI, error) {
	jarPath = strings.TrimSpace(jarPath)
	if jarPath == "" {
		return nil, errors.New("alignment jar path required")
	}
	cli := &CLI{javaBinary: "java", jarPath: jarPath}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// ComputeSiftFeatures extracts SIFT features for every tile spec in tilesDir,
// writing one feature artifact per tile into outDir.
func (c *CLI) ComputeSiftFeatures(ctx context.Context, tilesDir, outDir string) error {
	if tilesDir == "" {
		return errors.New("tiles directory required")
	}
	if err := fileutil.EnsureDir(outDir); err != nil {
		return err
	}
	return c.run(ctx, classComputeSift, "--tilespec_dir", tilesDir, "--output_dir", outDir)
}

// MatchSiftFeatures matches features between overlapping tiles, writing one
// match artifact per qualifying pair into outDir.
func (c *CLI) MatchSiftFeatures(ctx context.Context, tilesDir, siftDir, outDir string) error {
	if tilesDir == "" || siftDir == "" {
		return errors.New("tiles and sift directories required")
	}
	if err := fileutil.EnsureDir(outDir); err != nil {
		return err
	}
	return c.run(ctx, classMatchSift,
		"--tilespec_dir", tilesDir, "--sift_dir", siftDir, "--output_dir", outDir)
}

// OptimizeMontageTransform solves the montage transforms from the
// correspondence bundle and the original tile spec.
func (c *CLI) OptimizeMontageTransform(ctx context.Context, correspondenceFile, tileSpecPath, outFile string) error {
	if correspondenceFile == "" || tileSpecPath == "" || outFile == "" {
		return errors.New("correspondence file, tile spec, and output file required")
	}
	return c.run(ctx, classOptimize,
		"--corr_file", correspondenceFile, "--tilespec", tileSpecPath, "--out", outFile)
}

// Render rasterizes the optimized montage into outFile.
func (c *CLI) Render(ctx context.Context, montageFile, outFile string) error {
	if montageFile == "" || outFile == "" {
		return errors.New("montage file and output file required")
	}
	return c.run(ctx, classRender, "--montage", montageFile, "--out", outFile)
}

func (c *CLI) run(ctx context.Context, class string, args ...string) error {
	javaArgs := make([]string, 0, len(args)+4)
	if c.heap != "" {
		javaArgs = append(javaArgs, c.heap)
	}
	javaArgs = append(javaArgs, "-cp", c.jarPath, class)
	javaArgs = append(javaArgs, args...)

	cmd := commandContext(ctx, c.javaBinary, javaArgs...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := stderrTail(stderr.String()); detail != "" {
			return fmt.Errorf("%s: %w: %s", class, err, detail)
		}
		return fmt.Errorf("%s: %w", class, err)
	}
	return nil
}

// stderrTail keeps the last few stderr lines so jar stack traces stay
// readable in error messages.
func stderrTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "; ")
}

var _ Invoker = (*CLI)(nil)
