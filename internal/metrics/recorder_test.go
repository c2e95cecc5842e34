package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	rec := NewPrometheusRecorder()

	rec.ObserveGeneration("epic", "success", 2, 3*time.Second)
	rec.ObserveGeneration("epic", "error", 0, time.Second)
	rec.ObserveSync("epic", "success")
	rec.ObserveSync("epic", "failed")
	rec.ObserveSync("epic", "failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.generationsTotal.WithLabelValues("epic", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.generatedItems.WithLabelValues("epic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.syncTotal.WithLabelValues("epic", "failed")))
}

func TestWriteTextfile(t *testing.T) {
	rec := NewPrometheusRecorder()
	rec.ObserveRequest("POST", "/generate-epics/{id}", 200, 10*time.Millisecond)
	rec.ObserveSync("story", "success")

	path := filepath.Join(t.TempDir(), "ra.prom")
	require.NoError(t, rec.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "requirement_analyzer_tracker_sync_total"))
	assert.True(t, strings.Contains(out, `code="2xx"`))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "error", statusLabel(0))
	assert.Equal(t, "2xx", statusLabel(201))
	assert.Equal(t, "4xx", statusLabel(401))
	assert.Equal(t, "5xx", statusLabel(502))
}
