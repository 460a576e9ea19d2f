package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/chazu/geoview/pkg/app"
	"github.com/chazu/geoview/pkg/config"
	"github.com/chazu/geoview/pkg/kernel/sdfx"
	"github.com/chazu/geoview/pkg/loader"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/spf13/cobra"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

type treeOpts struct {
	format  string
	output  string
	overlap bool
	config  string
}

func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "tree [file]",
		Short: "Print the placement hierarchy as a DOT or SVG diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatDOT && opts.format != formatSVG {
				return fmt.Errorf("invalid format: %s (must be dot or svg)", opts.format)
			}
			return c.runTree(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg")
	cmd.Flags().StringVar(&opts.output, "output", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.overlap, "overlap", false, "run the overlap check and mark flagged placements")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML config file")
	return cmd
}

func (c *CLI) runTree(ctx context.Context, path string, opts *treeOpts) error {
	logger := loggerFromContext(ctx)

	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.LoadFile(opts.config); err != nil {
			return err
		}
	}

	k := sdfx.New(sdfx.WithMeshCells(cfg.Mesh.Cells))
	root, err := loader.Load(ctx, path, loader.Options{Kernel: k, Schema: cfg.Load.Schema, Logger: logger})
	if err != nil {
		return err
	}

	if opts.overlap {
		ovOpts := cfg.OverlapOptions()
		ovOpts.Logger = logger
		a := app.New(k, app.WithLogger(logger), app.WithOverlapOptions(ovOpts))
		con, err := a.Construct(ctx, root)
		if err != nil {
			return err
		}
		logger.Info("Checked overlaps", "overlaps", con.Summary.Overlaps, "flagged", con.Summary.Flagged)
	}

	out := []byte(scene.ToDOT(root))
	if opts.format == formatSVG {
		if out, err = scene.RenderSVG(ctx, string(out)); err != nil {
			return err
		}
	}

	if opts.output == "" {
		_, err = c.out.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	logger.Info("Wrote diagram", "path", opts.output)
	return nil
}
