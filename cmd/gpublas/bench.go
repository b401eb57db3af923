package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu"
)

type benchOptions struct {
	n           int
	iterations  int
	metricsAddr string
}

func newBenchCmd(opts *options) *cobra.Command {
	bo := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run scale and axpy repeatedly and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bo.n < 0 || bo.iterations <= 0 {
				return errors.Errorf("need --n >= 0 and --iterations > 0, got %d and %d", bo.n, bo.iterations)
			}
			ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer ctx.Release()
			return runBench(cmd, ctx, bo)
		},
	}
	cmd.Flags().IntVar(&bo.n, "n", 1<<20, "vector length")
	cmd.Flags().IntVar(&bo.iterations, "iterations", 20, "calls per kernel")
	cmd.Flags().StringVar(&bo.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address while running")
	return cmd
}

func newLatencyHistogram(reg prometheus.Registerer) *prometheus.HistogramVec {
	return promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gpublas_bench_call_seconds",
		Help:    "Wall time of one Scale/Axpy call, upload to read-back.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"kernel"})
}

func runBench(cmd *cobra.Command, ctx *gpu.Context, bo *benchOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(gpu.NewCollector(ctx))
	latency := newLatencyHistogram(reg)

	if bo.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: bo.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				klog.Errorf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		klog.Infof("serving metrics at http://%s/metrics", bo.metricsAddr)
	}

	x := make([]uint32, bo.n)
	y := make([]uint32, bo.n)
	for i := range x {
		x[i] = uint32(i)
		y[i] = uint32(bo.n - i)
	}

	out := cmd.OutOrStdout()
	info := ctx.Info()
	fmt.Fprintf(out, "🚀 Benchmarking on %s (%s)\n", info.Name, ctx.Backend())
	fmt.Fprintf(out, "   %s elements, %d iterations per kernel\n\n",
		humanize.Comma(int64(bo.n)), bo.iterations)

	kernelsToRun := []struct {
		name string
		call func() error
	}{
		{"scale", func() error { _, err := gpu.Scale(ctx, x, 3); return err }},
		{"axpy", func() error { _, err := gpu.Axpy(ctx, x, y, 3); return err }},
	}
	for _, k := range kernelsToRun {
		observer := latency.WithLabelValues(k.name)
		start := time.Now()
		for i := 0; i < bo.iterations; i++ {
			callStart := time.Now()
			if err := k.call(); err != nil {
				return errors.Wrapf(err, "%s iteration %d", k.name, i)
			}
			observer.Observe(time.Since(callStart).Seconds())
		}
		elapsed := time.Since(start)
		perCall := elapsed / time.Duration(bo.iterations)
		elements := float64(bo.n) * float64(bo.iterations) / elapsed.Seconds()
		fmt.Fprintf(out, "%-6s %10s/call  %s elements/s\n", k.name, perCall.Round(time.Microsecond),
			humanize.SIWithDigits(elements, 2, ""))
	}

	stats := ctx.Stats()
	fmt.Fprintf(out, "\nStats:\n")
	fmt.Fprintf(out, "  Uploads:     %s (%s)\n", humanize.Comma(stats.Uploads), humanize.IBytes(uint64(stats.BytesUploaded)))
	fmt.Fprintf(out, "  Downloaded:  %s\n", humanize.IBytes(uint64(stats.BytesDownloaded)))
	fmt.Fprintf(out, "  Dispatches:  %s (%s work-groups)\n", humanize.Comma(stats.Dispatches), humanize.Comma(stats.WorkGroups))
	fmt.Fprintf(out, "  Pipelines:   %d compiled, %d from cache\n", stats.PipelineCompiles, stats.PipelineCacheHits)
	fmt.Fprintf(out, "  Timeouts:    %d\n", stats.FenceTimeouts)
	return nil
}
