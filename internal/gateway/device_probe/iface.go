package device_probe

import (
	"context"

	"github.com/horockey/devreg/internal/model"
)

type Gateway interface {
	model.MetricsProvider
	// Probe asks the device at address for its descriptor.
	// Any failure is reported as model.ProbeFailedError.
	Probe(ctx context.Context, address string) (model.Descriptor, error)
}
