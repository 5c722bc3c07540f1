package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/kool-runtime/program"
)

func newHelloCmd(a *app) *cobra.Command {
	var (
		emit string
		o    runOptions
	)
	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Run or emit the built-in sample program",
		Long: `Hello builds a small program that prints Hello, the concatenation of
foo and bar, -42, True and False. Use it to check an installation, or
write it out with --emit to get a module to experiment with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin := program.Hello(program.WithHostModule(a.cfg.Host.Module))
			if emit != "" {
				if err := os.WriteFile(emit, bin, 0o644); err != nil {
					return fmt.Errorf("write module: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", emit, len(bin))
				return nil
			}
			return a.execute(cmd, bin, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&emit, "emit", "o", "", "write the module to a file instead of running it")
	f.BoolVar(&o.stats, "stats", false, "print heap statistics to stderr")
	f.BoolVar(&o.metrics, "metrics", false, "print allocator metrics to stderr")
	return cmd
}
