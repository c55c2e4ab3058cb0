package utils

import (
	"fmt"
	"log/slog"

	"github.com/notargets/PAKernel/utils/logging"
	"github.com/notargets/gocca"
)

// TestBackends lists the OCCA device properties tried by CreateTestDevice,
// parallel backends first
var TestBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice creates an OCCA device from the first of the property strings
// that succeeds.
func CreateDevice(logger *slog.Logger, backends ...string) (*gocca.OCCADevice, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var lastErr error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err == nil {
			logger.Info("created device", "mode", device.Mode())
			return device, nil
		}
		logger.Debug("device unavailable", "props", props, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no device properties given")
	}
	return nil, fmt.Errorf("failed to create any device: %w", lastErr)
}

// CreateTestDevice creates a Device for testing, preferring parallel
// backends. It returns nil when no backend is available.
func CreateTestDevice() *gocca.OCCADevice {
	device, err := CreateDevice(nil, TestBackends...)
	if err != nil {
		return nil
	}
	return device
}
