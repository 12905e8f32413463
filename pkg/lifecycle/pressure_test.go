package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
)

func writePSI(t *testing.T, dir string, avg10 string) {
	t.Helper()
	content := "some avg10=" + avg10 + " avg60=0.00 avg300=0.00 total=1234\n" +
		"full avg10=0.00 avg60=0.00 avg300=0.00 total=0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pressure", "memory"), []byte(content), 0o644))
}

func newFakeProc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pressure"), 0o755))
	return dir
}

func TestPressureMonitor_EdgeTriggered(t *testing.T) {
	dir := newFakeProc(t)
	registry := metric.NewMetricsRegistry()
	n := NewNotifier()

	var warnings int
	sub, err := n.Subscribe(func(s Signal) {
		assert.Equal(t, SignalMemoryWarning, s)
		warnings++
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	m, err := NewPressureMonitor(n, PressureConfig{ProcPath: dir, Threshold: 20}, WithMetrics(registry))
	require.NoError(t, err)

	writePSI(t, dir, "5.00")
	posted, err := m.Check()
	require.NoError(t, err)
	assert.False(t, posted)

	writePSI(t, dir, "25.50")
	posted, err = m.Check()
	require.NoError(t, err)
	assert.True(t, posted)
	assert.Equal(t, 25.5, testutil.ToFloat64(registry.CoreMetrics().MemoryPressure))

	// Still above: no second warning for the same excursion.
	writePSI(t, dir, "30.00")
	posted, err = m.Check()
	require.NoError(t, err)
	assert.False(t, posted)

	// Drop below, then cross again.
	writePSI(t, dir, "1.00")
	_, err = m.Check()
	require.NoError(t, err)
	writePSI(t, dir, "21.00")
	posted, err = m.Check()
	require.NoError(t, err)
	assert.True(t, posted)

	assert.Equal(t, 2, warnings)
}

func TestPressureMonitor_MissingFile(t *testing.T) {
	m, err := NewPressureMonitor(NewNotifier(), PressureConfig{ProcPath: newFakeProc(t)})
	require.NoError(t, err)

	_, err = m.Check()
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestPressureMonitor_BadProcPath(t *testing.T) {
	_, err := NewPressureMonitor(NewNotifier(), PressureConfig{ProcPath: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPressureConfig_Defaults(t *testing.T) {
	cfg := PressureConfig{}.withDefaults()
	assert.Equal(t, "/proc", cfg.ProcPath)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 10.0, cfg.Threshold)
}
