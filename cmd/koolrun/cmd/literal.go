package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wippyai/kool-runtime/literal"
	"github.com/wippyai/kool-runtime/program"
)

func newLiteralCmd() *cobra.Command {
	var (
		base  uint32
		raw   bool
		array bool
	)
	cmd := &cobra.Command{
		Use:   "literal <value>...",
		Short: "Show how literals are laid out in a data segment",
		Long: `Literal lays out each value the way a code generator would and prints
its address and bytes. Values are text records by default, raw
NUL-terminated units with --raw, or one array record of integers with
--array.

Example:
  koolrun literal Hello foobar
  koolrun literal --array 1 2 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw && array {
				return fmt.Errorf("--raw and --array are exclusive")
			}
			pool := literal.NewPool(base)
			out := cmd.OutOrStdout()

			show := func(label string, add func() uint32) {
				before := pool.End()
				addr := add()
				if pool.End() == before {
					fmt.Fprintf(out, "0x%04x  (interned)  %s\n", addr, label)
					return
				}
				enc := pool.Bytes()[addr-pool.Base():]
				fmt.Fprintf(out, "0x%04x  %s  %s\n", addr, hex.EncodeToString(enc), label)
			}

			if array {
				values := make([]int32, len(args))
				for i, s := range args {
					v, err := strconv.ParseInt(s, 10, 32)
					if err != nil {
						return fmt.Errorf("array element %d: %w", i, err)
					}
					values[i] = int32(v)
				}
				show(fmt.Sprint(values), func() uint32 { return pool.AddArray(values) })
			} else {
				for _, s := range args {
					label := strconv.Quote(s)
					if raw {
						show(label, func() uint32 { return pool.AddRaw(s) })
					} else {
						show(label, func() uint32 { return pool.AddText(s) })
					}
				}
			}
			fmt.Fprintf(out, "__heap_base = %#x\n", pool.End())
			return nil
		},
	}
	f := cmd.Flags()
	f.Uint32Var(&base, "base", program.DataBase, "address of the first literal")
	f.BoolVar(&raw, "raw", false, "lay out raw units for string_create")
	f.BoolVar(&array, "array", false, "lay out one array record")
	return cmd
}
