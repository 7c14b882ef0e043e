package telemetry

import (
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler is a running Pyroscope continuous profiler
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	once     sync.Once
}

// NewProfiler starts pushing profiles of the process to serverAddress
func NewProfiler(serverAddress, applicationName string, logger *zap.Logger) (*Profiler, error) {
	if serverAddress == "" {
		return nil, fmt.Errorf("profiler server address is required")
	}

	tags := map[string]string{}
	if hostname, err := os.Hostname(); err == nil {
		tags["hostname"] = hostname
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   serverAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", serverAddress),
		zap.String("application_name", applicationName),
	)
	return &Profiler{profiler: profiler, logger: logger}, nil
}

// Stop flushes pending profiles. Later calls are no-ops.
func (p *Profiler) Stop() error {
	var err error
	p.once.Do(func() {
		if err = p.profiler.Stop(); err != nil {
			err = fmt.Errorf("failed to stop pyroscope profiler: %w", err)
		}
	})
	return err
}
