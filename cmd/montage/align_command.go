package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"montage/internal/ledger"
	"montage/internal/logging"
	"montage/internal/pipeline"
	"montage/internal/services/render"
	"montage/internal/tilespec"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var (
		workspaceDir   string
		renderOutput   bool
		outputFileName string
		jarFile        string
		boundingBox    string
	)

	cmd := &cobra.Command{
		Use:   "align <tile-spec>",
		Short: "Run the alignment pipeline over a tile spec",
		Long: `Align filters the tile spec by an optional bounding box, extracts SIFT
features, matches overlapping tiles, bundles the correspondences, and solves
the montage transforms. With --render the optimized montage is also
rasterized into the workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			region, err := tilespec.ParseRegion(boundingBox)
			if err != nil {
				return err
			}

			jar := strings.TrimSpace(jarFile)
			if jar == "" {
				jar = cfg.Java.JarFile
			}

			logFile, err := logging.OpenLogFile(filepath.Join(cfg.Paths.LogDir, "montage.log"))
			if err != nil {
				return err
			}
			defer logFile.Close()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: logFile,
			})
			if err != nil {
				return err
			}

			client, err := render.NewCLI(jar,
				render.WithJavaBinary(cfg.Java.Binary),
				render.WithHeap(cfg.Java.Heap),
			)
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runner, err := pipeline.NewRunner(client, logger, pipeline.WithLedger(store))
			if err != nil {
				return err
			}

			results, err := runner.Run(cmd.Context(), pipeline.Request{
				TileSpecPath:   args[0],
				WorkspaceDir:   workspaceDir,
				Region:         region,
				Render:         renderOutput,
				OutputFileName: outputFileName,
			})
			if err != nil {
				printStageSummary(cmd.OutOrStdout(), results)
				return err
			}

			printStageSummary(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceDir, "workspace-dir", "w", ".", "Directory that receives all pipeline artifacts")
	cmd.Flags().BoolVarP(&renderOutput, "render", "r", false, "Rasterize the optimized montage after solving")
	cmd.Flags().StringVarP(&outputFileName, "output-file-name", "o", "output.json", "Render output name, resolved inside the workspace unless absolute")
	cmd.Flags().StringVarP(&jarFile, "jar-file", "j", "", "Alignment jar path (defaults to the configured jar)")
	cmd.Flags().StringVarP(&boundingBox, "bounding-box", "b", "", `Region filter as "minX maxX minY maxY"; empty keeps every tile`)

	return cmd
}

func printStageSummary(out io.Writer, results []pipeline.StageResult) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Stage,
			result.Duration.Round(time.Millisecond).String(),
			result.Artifact,
		})
	}
	table := renderTable(
		[]string{"Stage", "Duration", "Artifact"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	)
	fmt.Fprintln(out, table)
}
