package devreg

import "github.com/horockey/devreg/internal/model"

type (
	ProbeFailedError    = model.ProbeFailedError
	DeviceNotFoundError = model.DeviceNotFoundError
)

var (
	ErrEmptyAddress       = model.ErrEmptyAddress
	ErrAlreadyInitialized = model.ErrAlreadyInitialized
)
