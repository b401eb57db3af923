package gpu

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a context's Stats as Prometheus counters.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(gpu.NewCollector(ctx))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
type Collector struct {
	ctx     *Context
	metrics []counterMetric
}

type counterMetric struct {
	desc  *prometheus.Desc
	value func(s Stats) int64
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for c. Every metric carries the backend
// and device name as constant labels.
func NewCollector(c *Context) *Collector {
	info := c.Info()
	labels := prometheus.Labels{"backend": string(c.Backend()), "device": info.Name}
	counter := func(name, help string, value func(s Stats) int64) counterMetric {
		return counterMetric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName("gpublas", "", name), help, nil, labels),
			value: value,
		}
	}

	return &Collector{
		ctx: c,
		metrics: []counterMetric{
			counter("uploads_total", "Vectors uploaded to the device.",
				func(s Stats) int64 { return s.Uploads }),
			counter("uploaded_bytes_total", "Bytes copied from host to device.",
				func(s Stats) int64 { return s.BytesUploaded }),
			counter("downloaded_bytes_total", "Bytes copied from device to host.",
				func(s Stats) int64 { return s.BytesDownloaded }),
			counter("dispatches_total", "Kernel dispatches submitted.",
				func(s Stats) int64 { return s.Dispatches }),
			counter("work_groups_total", "Work-groups executed by dispatches.",
				func(s Stats) int64 { return s.WorkGroups }),
			counter("pipeline_compiles_total", "Pipelines compiled.",
				func(s Stats) int64 { return s.PipelineCompiles }),
			counter("pipeline_cache_hits_total", "Pipelines built from a cached artifact.",
				func(s Stats) int64 { return s.PipelineCacheHits }),
			counter("fence_timeouts_total", "Fence waits that gave up.",
				func(s Stats) int64 { return s.FenceTimeouts }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.ctx.Stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value(stats)))
	}
}
