// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     memory
// Description: Periodic heap usage monitor with warning and critical levels
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package memory

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Level is the memory pressure level
type Level int32

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Config holds monitor configuration
type Config struct {
	Interval time.Duration
	Budget   uint64  // bytes the process may hold
	Warning  float64 // fraction of Budget
	Critical float64 // fraction of Budget
}

// DefaultConfig checks every 5 s against a 2 GiB budget
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Budget:   2 << 30,
		Warning:  0.75,
		Critical: 0.90,
	}
}

// Monitor samples process memory and classifies it against the budget.
// At warning level it triggers a collection; at critical level it also
// returns freed memory to the OS.
type Monitor struct {
	cfg     Config
	logger  *logging.Logger
	sample  func() uint64
	reclaim func(Level)

	level atomic.Int32
	usage atomic.Uint64 // float64 bits

	mu       sync.Mutex
	onChange []func(from, to Level, usage float64)
}

// NewMonitor creates a monitor sampling the Go runtime
func NewMonitor(cfg Config, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.New("memory")
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Budget == 0 {
		cfg.Budget = def.Budget
	}
	if cfg.Warning <= 0 {
		cfg.Warning = def.Warning
	}
	if cfg.Critical <= 0 {
		cfg.Critical = def.Critical
	}
	return &Monitor{
		cfg:     cfg,
		logger:  logger,
		sample:  runtimeSample,
		reclaim: reclaim,
	}
}

func runtimeSample() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys - m.HeapReleased
}

func reclaim(l Level) {
	switch l {
	case LevelWarning:
		runtime.GC()
	case LevelCritical:
		debug.FreeOSMemory()
	}
}

// OnChange registers a callback for level changes
func (m *Monitor) OnChange(fn func(from, to Level, usage float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Run checks immediately and then every Interval until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Memory monitor started",
		"interval", m.cfg.Interval,
		"budget_mb", m.cfg.Budget>>20)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.Check()
		select {
		case <-ctx.Done():
			m.logger.Info("Memory monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check samples memory once and returns the resulting level
func (m *Monitor) Check() Level {
	usage := float64(m.sample()) / float64(m.cfg.Budget)
	m.usage.Store(math.Float64bits(usage))

	next := LevelNormal
	switch {
	case usage >= m.cfg.Critical:
		next = LevelCritical
	case usage >= m.cfg.Warning:
		next = LevelWarning
	}

	prev := Level(m.level.Swap(int32(next)))
	if prev != next {
		m.logChange(prev, next, usage)
		m.mu.Lock()
		callbacks := append([]func(from, to Level, usage float64){}, m.onChange...)
		m.mu.Unlock()
		for _, fn := range callbacks {
			fn(prev, next, usage)
		}
	}
	if next != LevelNormal {
		m.reclaim(next)
	}
	return next
}

func (m *Monitor) logChange(from, to Level, usage float64) {
	kv := []any{"from", from, "to", to, "usage", fmt.Sprintf("%.1f%%", usage*100)}
	switch to {
	case LevelCritical:
		m.logger.Error("Memory usage critical", kv...)
	case LevelWarning:
		m.logger.Warn("Memory usage high", kv...)
	default:
		m.logger.Info("Memory usage normal", kv...)
	}
}

// Level returns the level of the last check
func (m *Monitor) Level() Level {
	return Level(m.level.Load())
}

// Usage returns the last sampled fraction of the budget
func (m *Monitor) Usage() float64 {
	return math.Float64frombits(m.usage.Load())
}

// HealthCheck reports warning as degraded and critical as unhealthy
func (m *Monitor) HealthCheck() health.Checker {
	return health.NewChecker("memory", func(ctx context.Context) health.CheckResult {
		result := health.CheckResult{
			Name:    "memory",
			Status:  health.StatusHealthy,
			Details: map[string]any{"usage": m.Usage(), "level": m.Level().String()},
		}
		switch m.Level() {
		case LevelWarning:
			result.Status = health.StatusDegraded
			result.Message = "memory usage above warning threshold"
		case LevelCritical:
			result.Status = health.StatusUnhealthy
			result.Message = "memory usage above critical threshold"
		}
		return result
	})
}
