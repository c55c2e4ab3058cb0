// Command paconvect assembles the partially assembled convection operator on
// a deformed box mesh, checks that its transpose is the adjoint and times
// repeated applications on the host or an OCCA device.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paconvect",
		Short: "Benchmark the matrix free convection operator",
		Long: `paconvect builds a box mesh of tensor product elements, assembles the
convection operator (alpha v . grad u, w) at the quadrature points and
applies it and its transpose repeatedly, reporting the kernel chosen, an
adjoint check and the time per application.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
