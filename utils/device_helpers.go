package utils

import (
	"errors"
	"fmt"

	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// DefaultBackends are tried in order by CreateDevice, preferring parallel
// backends over Serial
var DefaultBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice returns the first device that can be created from the given
// OCCA property strings, or DefaultBackends when none are given
func CreateDevice(logger *zap.Logger, backends ...string) (*gocca.OCCADevice, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(backends) == 0 {
		backends = DefaultBackends
	}
	var errs []error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err != nil {
			logger.Debug("device unavailable", zap.String("props", props), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", props, err))
			continue
		}
		logger.Info("created device", zap.String("mode", device.Mode()))
		return device, nil
	}
	return nil, fmt.Errorf("no device could be created: %w", errors.Join(errs...))
}

// CreateTestDevice creates a Device for testing
func CreateTestDevice() *gocca.OCCADevice {
	device, err := CreateDevice(nil)
	if err != nil {
		panic(err)
	}
	return device
}
