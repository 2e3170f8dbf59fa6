package model

// Batch is the outcome of one reconciliation pass.
type Batch struct {
	Records []DeviceRecord
	Online  int
}
