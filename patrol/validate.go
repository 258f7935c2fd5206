package patrol

import (
	"fmt"

	"github.com/docpatrol/docpatrol/patrol/internal/scheduler"
)

const (
	maxNameLen     = 512
	maxURLLen      = 4096
	maxCategoryLen = 128
	minPriority    = 1
	maxPriority    = 10
)

// validateSourceInput validates source fields before insert or update.
func validateSourceInput(in *SourceInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLen)
	}
	if in.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if len(in.URL) > maxURLLen {
		return fmt.Errorf("%w: url exceeds %d characters", ErrInvalidInput, maxURLLen)
	}
	if len(in.Category) > maxCategoryLen {
		return fmt.Errorf("%w: category exceeds %d characters", ErrInvalidInput, maxCategoryLen)
	}
	if in.Frequency != "" {
		if _, ok := scheduler.Intervals[in.Frequency]; !ok {
			return fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, in.Frequency)
		}
	}
	if in.Priority != 0 && (in.Priority < minPriority || in.Priority > maxPriority) {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidInput, minPriority, maxPriority)
	}
	return nil
}
