package model

type ChangeKind string

const (
	ChangeReconciled ChangeKind = "reconciled"
	ChangeDeleted    ChangeKind = "deleted"
	ChangeLoading    ChangeKind = "loading"
)

// Change is delivered to registry subscribers after every mutation.
type Change struct {
	Kind      ChangeKind
	Addresses []string
	Loading   bool
}
