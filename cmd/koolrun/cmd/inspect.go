package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/runtime"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "Check a module's imports and list its exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := readModule(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := a.newRuntime(ctx, cmd.OutOrStdout(), nil)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			mod, err := rt.LoadWASM(ctx, bin)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imports: ok (%s)\n", rt.Host().Name())
			fmt.Fprintln(out, "exports:")
			names := make(map[string]bool)
			for _, e := range mod.Exports() {
				names[e.Name] = true
				fmt.Fprintf(out, "  %-24s %s\n", e.Name, e.Type)
			}
			entry := "none"
			for _, name := range runtime.EntryPoints {
				if names[name] {
					entry = name
					break
				}
			}
			fmt.Fprintf(out, "entry point: %s\n", entry)
			return nil
		},
	}
}

func newABICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "abi",
		Short: "List the host functions programs may import",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, f := range abi.Funcs {
				fmt.Fprintf(out, "%s.%-16s %-18s %s\n", a.cfg.Host.Module, f.Name, f.Type(), f.Doc)
			}
		},
	}
}
