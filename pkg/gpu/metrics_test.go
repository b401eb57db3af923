package gpu

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := newTestContext(t)
	collector := NewCollector(c)

	_, err := Scale(c, []uint32{0, 1, 2, 3, 4}, 2)
	require.NoError(t, err)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))
	assert.Equal(t, 8, testutil.CollectAndCount(collector))

	expected := `
# HELP gpublas_dispatches_total Kernel dispatches submitted.
# TYPE gpublas_dispatches_total counter
gpublas_dispatches_total{backend="software",device="Software Compute Device"} 1
# HELP gpublas_uploaded_bytes_total Bytes copied from host to device.
# TYPE gpublas_uploaded_bytes_total counter
gpublas_uploaded_bytes_total{backend="software",device="Software Compute Device"} 20
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"gpublas_dispatches_total", "gpublas_uploaded_bytes_total")
	assert.NoError(t, err)
}
