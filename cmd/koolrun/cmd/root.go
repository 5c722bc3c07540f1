// Package cmd implements the koolrun command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/config"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/host"
	"github.com/wippyai/kool-runtime/runtime"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd builds the koolrun command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "koolrun",
		Short: "Run compiled kool programs",
		Long: `koolrun loads WebAssembly modules produced by the kool compiler and
runs them against the kool host module: text and array records, string
helpers and console printing.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		newRunCmd(a),
		newInspectCmd(a),
		newHelloCmd(a),
		newInteractiveCmd(a),
		newABICmd(a),
		newLiteralCmd(),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log

	runtime.SetLogger(log.Named("runtime"))
	host.SetLogger(log.Named("host"))
	alloc.SetLogger(log.Named("alloc"))
	return nil
}

// newRuntime creates a runtime from the loaded configuration. reg may be nil.
func (a *app) newRuntime(ctx context.Context, out io.Writer, reg prometheus.Registerer) (*runtime.Runtime, error) {
	rc, err := a.cfg.Runtime()
	if err != nil {
		return nil, err
	}
	rc.Output = out
	rc.Metrics = reg
	return runtime.New(ctx, rc)
}

// readModule reads a compiled program from disk.
func readModule(path string) ([]byte, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindInvalidInput
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, errors.Wrap(errors.PhaseLoad, kind, err, "read module "+path)
	}
	return bin, nil
}
