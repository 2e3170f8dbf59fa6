package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// Descriptor is the JSON object a device reports about itself.
// Registry does not interpret it.
type Descriptor = json.RawMessage

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type DeviceRecord struct {
	Address string     `json:"address"`
	Status  Status     `json:"status,omitempty"`
	Device  Descriptor `json:"device,omitempty"`
}

// Valid reports whether record may be kept by a store on load.
func (rec DeviceRecord) Valid() bool {
	return rec.Address != "" && rec.HasDevice()
}

// HasDevice reports whether descriptor is a JSON object.
// Scalars, arrays and null are not descriptors.
func (rec DeviceRecord) HasDevice() bool {
	d := bytes.TrimSpace(rec.Device)
	return len(d) > 0 && d[0] == '{' && json.Valid(d)
}

func (rec DeviceRecord) Online() bool {
	return rec.Status == StatusOnline
}

// Clone returns a copy that does not share the descriptor buffer.
func (rec DeviceRecord) Clone() DeviceRecord {
	rec.Device = slices.Clone(rec.Device)
	return rec
}

// SortRecords orders records by address, giving stores a stable serialization.
func SortRecords(recs []DeviceRecord) {
	slices.SortFunc(recs, func(a, b DeviceRecord) int {
		return strings.Compare(a.Address, b.Address)
	})
}
