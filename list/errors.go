package list

import "github.com/pkg/errors"

var (
	// ErrAllocation is returned by Insert when the node store cannot provide a new node.
	// No lock is held and the chain is unchanged when it is returned.
	ErrAllocation = errors.New("node allocation failed")

	// ErrPoisoned is returned once a mutation has panicked while holding locks.
	// The chain can no longer be trusted and every later operation fails with it.
	ErrPoisoned = errors.New("list poisoned by an aborted mutation")
)
