package model

import "context"

// Registry is the operation set exposed to UI-facing layers.
type Registry interface {
	AddDevice(ctx context.Context, address string) (DeviceRecord, error)
	FetchDevices(ctx context.Context, addresses []string) Batch
	ReconnectDevice(ctx context.Context) Batch
	GetDevice(address string) (DeviceRecord, bool)
	Devices() []DeviceRecord
	DeleteDevice(address string) bool
	NumberOfDetectedDevices() int
	Loading() bool
}
