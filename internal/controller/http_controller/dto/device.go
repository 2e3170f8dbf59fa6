package dto

import (
	"github.com/horockey/devreg/internal/model"
	"github.com/samber/lo"
)

type Device struct {
	Address string           `json:"address"`
	Status  string           `json:"status"`
	Device  model.Descriptor `json:"device,omitempty"`
}

func NewDevice(rec model.DeviceRecord) Device {
	return Device{
		Address: rec.Address,
		Status:  string(rec.Status),
		Device:  rec.Device,
	}
}

func NewDevices(recs []model.DeviceRecord) []Device {
	return lo.Map(recs, func(rec model.DeviceRecord, _ int) Device {
		return NewDevice(rec)
	})
}

type AddDeviceRequest struct {
	Address string `json:"address"`
}

type DiscoverRequest struct {
	Addresses []string `json:"addresses"`
}

type DiscoverResponse struct {
	Detected int      `json:"detected"`
	Devices  []Device `json:"devices"`
}

type Status struct {
	Loading  bool `json:"loading"`
	Detected int  `json:"detected"`
	Count    int  `json:"count"`
}
