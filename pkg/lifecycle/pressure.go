package lifecycle

import (
	"context"
	"time"

	"github.com/prometheus/procfs"

	"github.com/c360/semcache/errors"
)

// PressureConfig configures a PressureMonitor.
type PressureConfig struct {
	// ProcPath is the procfs mount point. Defaults to /proc.
	ProcPath string `json:"proc_path"`
	// Interval is how often PSI is sampled. Defaults to 5s.
	Interval time.Duration `json:"interval"`
	// Threshold is the "some avg10" percentage at or above which a memory
	// warning is posted. Defaults to 10.
	Threshold float64 `json:"threshold"`
}

func (c PressureConfig) withDefaults() PressureConfig {
	if c.ProcPath == "" {
		c.ProcPath = procfs.DefaultMountPoint
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Threshold <= 0 {
		c.Threshold = 10
	}
	return c
}

// PressureMonitor samples Linux pressure stall information for memory and
// posts SignalMemoryWarning when the threshold is crossed. It is edge
// triggered: one warning per excursion, re-armed once pressure drops below
// the threshold.
type PressureMonitor struct {
	fs       procfs.FS
	cfg      PressureConfig
	notifier *Notifier
	opts     options
	above    bool
}

// NewPressureMonitor opens procfs and returns a monitor posting to n.
func NewPressureMonitor(n *Notifier, cfg PressureConfig, opts ...Option) (*PressureMonitor, error) {
	cfg = cfg.withDefaults()

	fs, err := procfs.NewFS(cfg.ProcPath)
	if err != nil {
		return nil, errors.WrapInvalid(err, "PressureMonitor", "NewPressureMonitor", "open procfs")
	}

	return &PressureMonitor{
		fs:       fs,
		cfg:      cfg,
		notifier: n,
		opts:     applyOptions(opts),
	}, nil
}

// Sample reads the current memory "some avg10" value.
func (m *PressureMonitor) Sample() (float64, error) {
	stats, err := m.fs.PSIStatsForResource("memory")
	if err != nil {
		return 0, errors.WrapTransient(err, "PressureMonitor", "Sample", "read memory PSI")
	}
	if stats.Some == nil {
		return 0, errors.WrapInvalid(errors.ErrParsingFailed, "PressureMonitor", "Sample", "missing 'some' line")
	}
	return stats.Some.Avg10, nil
}

// Check samples once and posts a warning on an upward crossing. It reports
// whether a warning was posted.
func (m *PressureMonitor) Check() (bool, error) {
	avg10, err := m.Sample()
	if err != nil {
		return false, err
	}
	if m.opts.metrics != nil {
		m.opts.metrics.MemoryPressure.Set(avg10)
	}

	if avg10 < m.cfg.Threshold {
		m.above = false
		return false, nil
	}
	if m.above {
		return false, nil
	}

	m.above = true
	m.opts.logger.Warn("Memory pressure threshold crossed",
		"avg10", avg10, "threshold", m.cfg.Threshold)
	m.notifier.Post(SignalMemoryWarning)
	return true, nil
}

// Run samples until ctx is done. Sampling errors are logged, not returned,
// so a transient procfs hiccup does not stop monitoring.
func (m *PressureMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.opts.logger.Info("Memory pressure monitor started",
		"proc_path", m.cfg.ProcPath, "interval", m.cfg.Interval, "threshold", m.cfg.Threshold)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Check(); err != nil {
				m.opts.logger.Warn("Memory pressure sample failed", "error", err)
			}
		}
	}
}
