// Package profiling starts optional Pyroscope continuous profiling.
package profiling

import (
	"fmt"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/saferoute-nyc/saferoute/internal/config"
)

const defaultServerAddress = "http://pyroscope:4040"

// Profiler wraps a running Pyroscope session.
type Profiler struct {
	profiler *pyroscope.Profiler
}

// Start begins continuous profiling when cfg enables it. Returns nil when
// profiling is disabled.
func Start(cfg config.ProfilingConfig, serviceName string) (*Profiler, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	serverAddress := cfg.ServerAddress
	if serverAddress == "" {
		serverAddress = defaultServerAddress
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: fmt.Sprintf("saferoute.%s", serviceName),
		ServerAddress:   serverAddress,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"hostname":   hostname(),
			"go_version": runtime.Version(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}

	return &Profiler{profiler: profiler}, nil
}

// Stop flushes and stops the profiler. Safe on a nil receiver.
func (p *Profiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
