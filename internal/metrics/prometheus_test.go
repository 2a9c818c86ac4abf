package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducnote/ducnote/internal/core"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics()
	assert.NotNil(t, m)
	assert.NotNil(t, m.artifacts)
	assert.NotNil(t, m.artifactBytes)
	assert.NotNil(t, m.artifactDuration)
	assert.NotNil(t, m.stepDuration)
	assert.NotNil(t, m.runs)
	assert.NotNil(t, m.lastRun)
}

func TestPrometheusMetrics_Gather(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ObserveArtifact("lora-models", core.LinkFile, core.OutcomeInstalled, 2048, 3*time.Second)
	m.ObserveArtifact("lora-models", core.LinkFile, core.OutcomeAlreadyPresent, 0, 0)
	m.ObserveStep("checkout", time.Second, nil)
	m.ObserveStep("readiness", time.Second, errors.New("timeout"))
	m.ObserveRun(core.RunPublic)

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ducnote_artifacts_total")
	assert.Contains(t, names, "ducnote_artifact_bytes_total")
	assert.Contains(t, names, "ducnote_artifact_duration_seconds")
	assert.Contains(t, names, "ducnote_step_duration_seconds")
	assert.Contains(t, names, "ducnote_runs_total")
	assert.Contains(t, names, "ducnote_last_run_timestamp_seconds")

	for _, f := range families {
		if f.GetName() != "ducnote_artifact_bytes_total" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		assert.Equal(t, float64(2048), f.GetMetric()[0].GetCounter().GetValue())
	}
}

func TestPrometheusMetrics_WriteTextfile(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ObserveRun(core.RunLocalOnly)

	path := filepath.Join(t.TempDir(), "ducnote.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ducnote_runs_total{outcome="local-only"} 1`)
}

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ core.Metrics = (*PrometheusMetrics)(nil)
}
