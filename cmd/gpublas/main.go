// Command gpublas runs BLAS Level-1 kernels on a compute device.
//
// Usage:
//
//	gpublas [command] [flags]
//
// Commands:
//
//	devices         show the device a context opens
//	kernels         list kernel descriptors and BLAS kinds
//	kernels verify  validate every descriptor (used by go generate)
//	scale           x = a*x
//	axpy            y = a*x + y
//	bench           repeated scale/axpy with Prometheus metrics
//
// Global flags:
//
//	--config string     YAML configuration file
//	--backend string    software or opencl (default: auto)
//	--timeout duration  fence wait timeout (default: wait forever)
//
// Example:
//
//	# Scale on whatever device is available
//	gpublas scale --a 2 0 1 2 3 4
//	[0 2 4 6 8]
//
//	# axpy on the software device
//	gpublas axpy --backend software --a 2 --x 5,6,7,8,9 --y 0,1,2,3,4
//	[10 13 16 19 22]
//
//	# Benchmark and expose metrics on :9090/metrics
//	gpublas bench --n 1000000 --iterations 100 --metrics-addr :9090
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu"
)

type options struct {
	configPath string
	backend    string
	timeout    time.Duration
}

func main() {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	defer klog.Flush()

	if err := newRootCmd(klogFlags).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(klogFlags *flag.FlagSet) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "gpublas",
		Short:         "Run BLAS Level-1 kernels on a compute device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "compute backend: software or opencl (default: auto)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "fence wait timeout (0 waits forever)")
	if klogFlags != nil {
		root.PersistentFlags().AddGoFlagSet(klogFlags)
	}

	root.AddCommand(
		newDevicesCmd(opts),
		newKernelsCmd(),
		newScaleCmd(opts),
		newAxpyCmd(opts),
		newBenchCmd(opts),
	)
	return root
}

// config resolves the configuration: file (or defaults), then flags.
func (o *options) config(cmd *cobra.Command) (*gpu.Config, error) {
	config := gpu.DefaultConfig()
	if o.configPath != "" {
		loaded, err := gpu.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if cmd.Flags().Changed("backend") {
		config.Backend = gpu.Backend(o.backend)
	}
	if cmd.Flags().Changed("timeout") {
		config.FenceTimeout = o.timeout
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// open returns a context for cmd; the caller releases it.
func (o *options) open(cmd *cobra.Command) (*gpu.Context, error) {
	config, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	ctx, err := gpu.NewContext(config)
	if err != nil {
		return nil, errors.Wrap(err, "opening compute device")
	}
	return ctx, nil
}
