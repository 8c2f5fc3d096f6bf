package lock

import "errors"

var (
	// another generation for the project is currently in flight
	ErrAlreadyRunning = errors.New("a generation is already running for this project")

	// an identical request key was admitted within the cooldown window
	ErrCooldown = errors.New("identical request within cooldown window")

	// the lock state kept changing under us; the caller may retry
	ErrContention = errors.New("lock contention, state changed during admission")
)
