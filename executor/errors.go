package executor

import "errors"

var (
	// ErrDeployReverted is returned by Deploy when the contract's constructor reverts.
	ErrDeployReverted = errors.New("constructor reverted")

	// ErrInvalidSnapshot is returned by RevertTo when given a SnapshotID that was never captured, or was already
	// consumed by a previous RevertTo.
	ErrInvalidSnapshot = errors.New("invalid or already-consumed snapshot id")
)
