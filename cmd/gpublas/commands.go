package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/orneryd/gpublas/pkg/gpu"
	"github.com/orneryd/gpublas/pkg/kernels"
)

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Show the device a context opens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer ctx.Release()

			info := ctx.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:        %s\n", ctx.Backend())
			fmt.Fprintf(out, "Device:         %s (#%d)\n", info.Name, info.ID)
			fmt.Fprintf(out, "Vendor:         %s\n", info.Vendor)
			fmt.Fprintf(out, "Memory:         %s\n", humanize.IBytes(info.MemoryBytes))
			fmt.Fprintf(out, "Compute units:  %d\n", info.ComputeUnits)
			fmt.Fprintf(out, "Max work-group: %d\n", info.MaxWorkGroup)
			return nil
		},
	}
}

func newKernelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernels",
		Short: "List kernel descriptors and BLAS kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for level := 1; level <= 3; level++ {
				fmt.Fprintf(out, "Level %d:\n", level)
				for _, kind := range kernels.ByLevel(level) {
					status := "unsupported"
					if d, err := kernels.Lookup(kind); err == nil {
						status = fmt.Sprintf("%s, %d binding(s), digest %.12s", d.Key(), len(d.Bindings), d.DigestHex())
					}
					fmt.Fprintf(out, "  %-6s %-7s %s\n", kind, kind.Reference(), status)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Validate every kernel descriptor against its source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, d := range kernels.All() {
				if err := d.Validate(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s: %v\n", d.Key(), err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", d.Key())
			}
			if failed > 0 {
				return errors.Errorf("%d kernel descriptor(s) failed validation", failed)
			}
			return nil
		},
	})
	return cmd
}

func newScaleCmd(opts *options) *cobra.Command {
	var a uint32
	cmd := &cobra.Command{
		Use:   "scale --a N x0 x1 ...",
		Short: "Compute a*x on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := parseVector(args)
			if err != nil {
				return err
			}
			ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer ctx.Release()

			out, err := gpu.Scale(ctx, x, a)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&a, "a", 1, "scalar multiplier")
	return cmd
}

func newAxpyCmd(opts *options) *cobra.Command {
	var (
		a    uint32
		x, y string
	)
	cmd := &cobra.Command{
		Use:   "axpy --a N --x x0,x1,... --y y0,y1,...",
		Short: "Compute a*x + y on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			xs, err := parseList(x)
			if err != nil {
				return errors.Wrap(err, "--x")
			}
			ys, err := parseList(y)
			if err != nil {
				return errors.Wrap(err, "--y")
			}
			ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer ctx.Release()

			out, err := gpu.Axpy(ctx, xs, ys, a)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&a, "a", 1, "scalar multiplier")
	cmd.Flags().StringVar(&x, "x", "", "comma-separated x vector")
	cmd.Flags().StringVar(&y, "y", "", "comma-separated y vector")
	return cmd
}

func parseList(s string) ([]uint32, error) {
	if strings.TrimSpace(s) == "" {
		return []uint32{}, nil
	}
	return parseVector(strings.Split(s, ","))
}

func parseVector(fields []string) ([]uint32, error) {
	out := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "element %q (want 0..%d)", f, uint32(math.MaxUint32))
		}
		out = append(out, uint32(v))
	}
	return out, nil
}
