package event

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Priority determines handler execution order.
// Higher values execute first.
type Priority int

const (
	// PriorityLowest runs after every other priority.
	PriorityLowest Priority = 100

	// PriorityLow is for handlers that only react to the final outcome.
	PriorityLow Priority = 300

	// PriorityDefault is used when no priority is given.
	PriorityDefault Priority = 500

	// PriorityImportant runs ahead of default handlers.
	PriorityImportant Priority = 600

	// PriorityHigh is for handlers that usually decide on denial.
	PriorityHigh Priority = 800

	// PriorityHighest runs before every other priority.
	PriorityHighest Priority = 1000

	// MinPriority and MaxPriority bound valid priorities.
	MinPriority Priority = 0
	MaxPriority Priority = 1000
)

// String returns the priority name, or its number when it has none.
func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityDefault:
		return "default"
	case PriorityImportant:
		return "important"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	default:
		return strconv.Itoa(int(p))
	}
}

// Validate returns ErrInvalidPriority when p is outside 0..1000.
func (p Priority) Validate() error {
	if p < MinPriority || p > MaxPriority {
		return errors.Wrapf(ErrInvalidPriority, "%d", int(p))
	}
	return nil
}

// ParsePriority accepts a priority name or number.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityLowest, PriorityLow, PriorityDefault, PriorityImportant, PriorityHigh, PriorityHighest} {
		if p.String() == s {
			return p, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidPriority, "%q", s)
	}
	p := Priority(n)
	return p, p.Validate()
}
