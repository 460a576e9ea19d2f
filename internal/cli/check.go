package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/geoview/pkg/app"
	"github.com/chazu/geoview/pkg/config"
	"github.com/chazu/geoview/pkg/kernel/sdfx"
	"github.com/chazu/geoview/pkg/loader"
	"github.com/chazu/geoview/pkg/overlap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ErrOverlapsFound is returned by check --fail when overlaps were found.
var ErrOverlapsFound = errors.New("overlaps found")

// checkOpts holds the command-line flags for the check command. Values
// start from the config file and are overridden by flags given explicitly.
type checkOpts struct {
	configPath  string
	meshPath    string
	metricsPath string
	jsonOut     bool
	fail        bool

	schema     bool
	overlap    bool
	resolution int
	tolerance  float64
	errMax     int
	workers    int
	seed       uint64
}

func newCheckOpts() checkOpts {
	def := config.Default()
	return checkOpts{
		resolution: def.Overlap.Resolution,
		tolerance:  def.Overlap.Tolerance,
		errMax:     def.Overlap.ErrMax,
		workers:    def.Overlap.Workers,
	}
}

func (c *CLI) checkCommand() *cobra.Command {
	opts := newCheckOpts()
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Load a scene and report overlapping placements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.resolveConfig(cmd, &opts)
			if err != nil {
				return err
			}
			return c.runCheck(cmd.Context(), args[0], cfg, &opts)
		},
	}
	bindCheckFlags(cmd, &opts)
	return cmd
}

func bindCheckFlags(cmd *cobra.Command, opts *checkOpts) {
	f := cmd.Flags()
	f.BoolVarP(&opts.schema, "schema", "s", false, "validate the scene strictly while loading")
	f.BoolVarP(&opts.overlap, "overlap", "o", false, "run the overlap check")
	f.IntVarP(&opts.resolution, "resolution", "r", opts.resolution, "surface samples per placement")
	f.Float64VarP(&opts.tolerance, "tolerance", "t", opts.tolerance, "penetration depth an overlap must exceed")
	f.IntVarP(&opts.errMax, "errmax", "e", opts.errMax, "maximum overlaps reported per placement")
	f.IntVar(&opts.workers, "workers", opts.workers, "placements checked concurrently")
	f.Uint64Var(&opts.seed, "seed", 0, "sampling seed")
	f.StringVar(&opts.configPath, "config", "", "TOML config file")
	f.StringVar(&opts.meshPath, "mesh", "", "write meshes as JSON to this file")
	f.StringVar(&opts.metricsPath, "metrics", "", "write Prometheus metrics to this textfile")
	f.BoolVar(&opts.jsonOut, "json", false, "print the report as JSON")
	f.BoolVar(&opts.fail, "fail", false, "exit non-zero when overlaps are found")
}

// resolveConfig loads the config file, if any, and applies explicit flags.
func (c *CLI) resolveConfig(cmd *cobra.Command, opts *checkOpts) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("schema") {
		cfg.Load.Schema = opts.schema
	}
	if f.Changed("overlap") {
		cfg.Overlap.Enabled = opts.overlap
	}
	if f.Changed("resolution") {
		cfg.Overlap.Resolution = opts.resolution
	}
	if f.Changed("tolerance") {
		cfg.Overlap.Tolerance = opts.tolerance
	}
	if f.Changed("errmax") {
		cfg.Overlap.ErrMax = opts.errMax
	}
	if f.Changed("workers") {
		cfg.Overlap.Workers = opts.workers
	}
	if f.Changed("seed") {
		cfg.Overlap.Seed = opts.seed
	}
	if c.verbose {
		cfg.Overlap.Verbose = true
	}
	return cfg, cfg.Validate()
}

func (c *CLI) runCheck(ctx context.Context, path string, cfg config.Config, opts *checkOpts) error {
	logger := loggerFromContext(ctx)
	k := sdfx.New(sdfx.WithMeshCells(cfg.Mesh.Cells))

	prog := newProgress(logger)
	root, err := loader.Load(ctx, path, loader.Options{Kernel: k, Schema: cfg.Load.Schema, Logger: logger})
	if err != nil {
		return err
	}
	prog.done("Loaded scene", "placements", root.Count())

	var reg *prometheus.Registry
	ovOpts := cfg.OverlapOptions()
	ovOpts.Logger = logger
	if opts.metricsPath != "" {
		reg = prometheus.NewRegistry()
		ovOpts.Metrics = overlap.NewMetrics(reg)
	}

	a := app.New(k,
		app.WithLogger(logger),
		app.WithOverlapCheck(cfg.Overlap.Enabled),
		app.WithOverlapOptions(ovOpts),
		app.WithBaseAlpha(cfg.Display.BaseAlpha),
	)

	prog = newProgress(logger)
	con, err := a.Construct(ctx, root)
	if err != nil {
		return err
	}
	if cfg.Overlap.Enabled {
		prog.done("Checked overlaps", "overlaps", con.Summary.Overlaps)
	}

	rep := newReport(path, cfg.Overlap.Enabled, con)
	if opts.jsonOut {
		if err := writeJSON(c.out, rep); err != nil {
			return err
		}
	} else {
		fmt.Fprint(c.out, renderReport(rep))
	}

	if opts.meshPath != "" {
		if err := c.writeMeshes(ctx, a, con, opts.meshPath); err != nil {
			return err
		}
		logger.Info("Wrote meshes", "path", opts.meshPath)
	}

	if reg != nil {
		if err := prometheus.WriteToTextfile(opts.metricsPath, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Info("Wrote metrics", "path", opts.metricsPath)
	}

	if opts.fail {
		return overlapsFound(con.Summary)
	}
	return nil
}

// overlapsFound reports flagged placements as ErrOverlapsFound. A placement
// whose region could not be built is flagged without a record, so the
// registry size alone would miss it.
func overlapsFound(sum overlap.Summary) error {
	if sum.Flagged == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d placements flagged, %d overlaps", ErrOverlapsFound, sum.Flagged, sum.Overlaps)
}

func (c *CLI) writeMeshes(ctx context.Context, a *app.App, con *app.Construction, path string) error {
	meshes, err := a.Meshes(ctx, con.Root)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write meshes: %w", err)
	}
	if err := writeJSON(f, meshes); err != nil {
		f.Close()
		return fmt.Errorf("write meshes: %w", err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
