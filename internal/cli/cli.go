// Package cli implements the geoview command-line interface.
//
// # Commands
//
//   - check: load a scene, optionally run the overlap check, print a report
//   - tree: print the placement hierarchy as DOT or SVG
//   - version: print build information
//
// All commands accept --verbose (-v) for debug logging. Loggers are passed
// through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Build information, set by the main package.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// SetVersion sets the values printed by the version command.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// CLI holds state shared by all commands.
type CLI struct {
	Logger  *log.Logger
	out     io.Writer
	verbose bool
}

// New creates a CLI that writes reports to out and logs to logw.
func New(out, logw io.Writer) *CLI {
	return &CLI{Logger: newLogger(logw, log.InfoLevel), out: out}
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "geoview",
		Short:        "geoview checks nested solid geometry for overlaps",
		Long:         `geoview loads a tree of placed solids, checks every placement for protrusion from its parent and intrusion into its siblings, and reports what it finds.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}
	root.SetVersionTemplate("geoview {{.Version}}\n")
	root.SetOut(c.out)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose logging; check also logs every overlap")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.versionCommand())
	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("geoview %s\n", version)
			if commit != "" {
				cmd.Printf("commit: %s\n", commit)
			}
			if date != "" {
				cmd.Printf("built: %s\n", date)
			}
			return nil
		},
	}
}

// newLogger creates a logger with timestamps formatted as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
