package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/runtime"
	"github.com/wippyai/kool-runtime/wasm"
)

type runOptions struct {
	function string
	args     []int32
	stats    bool
	metrics  bool
}

func newRunCmd(a *app) *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <file.wasm>",
		Short: "Run a compiled program",
		Long: `Run loads a module, checks its imports against the kool host module
and calls its entry point (_start, main or run) or the function named
with --func.

Example:
  koolrun run hello.wasm
  koolrun run --func add --arg 2 --arg 40 math.wasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := readModule(args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd, bin, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.function, "func", "f", "", "exported function to call instead of the entry point")
	f.Int32SliceVarP(&o.args, "arg", "a", nil, "i32 argument for --func, repeatable")
	f.BoolVar(&o.stats, "stats", false, "print heap statistics to stderr")
	f.BoolVar(&o.metrics, "metrics", false, "print allocator metrics to stderr")
	return cmd
}

func (a *app) execute(cmd *cobra.Command, bin []byte, o runOptions) error {
	if o.function == "" && len(o.args) > 0 {
		return errors.InvalidInput(errors.PhaseConfig, "--arg needs --func")
	}
	ctx := cmd.Context()

	var (
		reg        *prometheus.Registry
		registerer prometheus.Registerer
	)
	if o.metrics {
		reg = prometheus.NewRegistry()
		registerer = reg
	}

	rt, err := a.newRuntime(ctx, cmd.OutOrStdout(), registerer)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	mod, err := rt.LoadWASM(ctx, bin)
	if err != nil {
		return err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	var results []uint64
	if o.function == "" {
		err = inst.Run(ctx)
	} else {
		results, err = inst.Call(ctx, o.function, o.args...)
	}
	if err != nil {
		a.log.Debug("call failed", zap.String("function", o.function), zap.Error(err))
		return err
	}

	if len(results) > 0 {
		types := resultTypes(mod.Exports(), o.function)
		for i, r := range results {
			t := wasm.ValI32
			if i < len(types) {
				t = types[i]
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(t, r))
		}
	}

	if o.stats {
		s, err := inst.Stats(ctx)
		if err != nil {
			return err
		}
		printStats(cmd.ErrOrStderr(), s)
	}
	if reg != nil {
		if err := printMetrics(cmd.ErrOrStderr(), reg); err != nil {
			return err
		}
	}
	return nil
}

func resultTypes(exports []runtime.Export, name string) []wasm.ValType {
	for _, e := range exports {
		if e.Name == name {
			return e.Type.Results
		}
	}
	return nil
}

func formatValue(t wasm.ValType, v uint64) string {
	switch t {
	case wasm.ValI64:
		return fmt.Sprint(int64(v))
	case wasm.ValF32:
		return fmt.Sprint(api.DecodeF32(v))
	case wasm.ValF64:
		return fmt.Sprint(api.DecodeF64(v))
	default:
		return fmt.Sprint(api.DecodeI32(v))
	}
}

func printStats(w io.Writer, s runtime.Stats) {
	fmt.Fprintf(w, "heap: %s allocations, %s allocated", humanize.Comma(int64(s.Count)), humanize.IBytes(s.Bytes))
	if s.Next > 0 {
		fmt.Fprintf(w, " (%#x-%#x)", s.Base, s.Next)
	}
	fmt.Fprintf(w, "\nmemory: %s\n", humanize.IBytes(uint64(s.MemoryBytes)))
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
