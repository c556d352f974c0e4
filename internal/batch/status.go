package batch

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// Status is the processing stage of a stored batch. Batches only move
// forward, one stage at a time.
type Status int

const (
	StatusRemote      Status = 0
	StatusLocal       Status = 1
	StatusURLsUpdated Status = 2
	StatusIndexed     Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusRemote:
		return "REMOTE"
	case StatusLocal:
		return "LOCAL"
	case StatusURLsUpdated:
		return "URLS_UPDATED"
	case StatusIndexed:
		return "INDEXED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// CheckTransition returns ErrInvalidTransition unless to directly follows from.
func CheckTransition(from, to Status) error {
	if from < StatusRemote || to > StatusIndexed || to != from+1 {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, to)
	}
	return nil
}
