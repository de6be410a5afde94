package round

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveRound    = errors.New("no active training round")
	ErrNotAllRegistered = errors.New("not all expected clients are registered")
)

// GateError reports registration progress when a round start is rejected.
type GateError struct {
	Registered int `json:"registered"`
	Expected   int `json:"expected"`
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %d/%d", ErrNotAllRegistered, e.Registered, e.Expected)
}

func (e *GateError) Unwrap() error {
	return ErrNotAllRegistered
}
