package model

import (
	"errors"
	"fmt"
)

var (
	_ error = ProbeFailedError{}
	_ error = DeviceNotFoundError{}
)

var (
	ErrEmptyAddress       = errors.New("empty device address")
	ErrAlreadyInitialized = errors.New("registry already initialized")
)

type ProbeFailedError struct {
	Address string
	Reason  error
}

func (err ProbeFailedError) Error() string {
	return fmt.Sprintf("probing %s: %v", err.Address, err.Reason)
}

func (err ProbeFailedError) Unwrap() error {
	return err.Reason
}

type DeviceNotFoundError struct {
	Address string
}

func (err DeviceNotFoundError) Error() string {
	return fmt.Sprintf("device %s not found", err.Address)
}
