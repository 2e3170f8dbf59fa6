package device_records

import (
	"github.com/horockey/devreg/internal/model"
)

type Repository interface {
	model.MetricsProvider
	// Load returns all well-formed persisted records.
	// Unreadable storage is reset to an empty state, in that case
	// Load returns an empty slice and no error.
	Load() ([]model.DeviceRecord, error)
	// Save replaces persisted contents with recs.
	Save(recs []model.DeviceRecord) error
}
