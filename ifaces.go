package devreg

import (
	"context"

	"github.com/horockey/devreg/internal/gateway/device_probe"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records"
)

type (
	DeviceRecord = model.DeviceRecord
	Descriptor   = model.Descriptor
	Status       = model.Status
	Batch        = model.Batch
	Change       = model.Change
	ChangeKind   = model.ChangeKind

	Prober = device_probe.Gateway
	Store  = device_records.Repository
)

const (
	StatusOnline  = model.StatusOnline
	StatusOffline = model.StatusOffline

	ChangeReconciled = model.ChangeReconciled
	ChangeDeleted    = model.ChangeDeleted
	ChangeLoading    = model.ChangeLoading
)

type Controller interface {
	model.MetricsProvider
	Start(ctx context.Context, reg model.Registry) error
}
