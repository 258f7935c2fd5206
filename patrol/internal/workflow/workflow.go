// Package workflow derives pattern status from an append-only review
// history.
//
// Reviews are facts; status is a projection. DeriveStatus is a pure fold
// over the ordered history, so replaying the same reviews always yields the
// same status, and no review ever locks a pattern into a terminal state.
package workflow

import (
	"fmt"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// Valid review actions.
const (
	ActionApprove     = "approve"
	ActionReject      = "reject"
	ActionRefine      = "refine"
	ActionRequestInfo = "request_info"
)

// Pattern statuses.
const (
	StatusPending         = "pending"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusNeedsRefinement = "needs_refinement"
)

// actionStatus maps each review action to the status it produces. Both
// refine and request_info send the pattern back for rework, so they share
// needs_refinement.
var actionStatus = map[string]string{
	ActionApprove:     StatusApproved,
	ActionReject:      StatusRejected,
	ActionRefine:      StatusNeedsRefinement,
	ActionRequestInfo: StatusNeedsRefinement,
}

// ValidAction reports whether an action is one of the four review actions.
func ValidAction(action string) bool {
	_, ok := actionStatus[action]
	return ok
}

// StatusFor returns the status produced by a single action.
func StatusFor(action string) (string, error) {
	st, ok := actionStatus[action]
	if !ok {
		return "", fmt.Errorf("unknown review action %q", action)
	}
	return st, nil
}

// DeriveStatus folds an ordered review history into the current status.
// An empty history means pending. Later reviews always win; any state can
// move to any other.
func DeriveStatus(reviews []*store.Review) string {
	status := StatusPending
	for _, r := range reviews {
		if next, ok := actionStatus[r.Action]; ok {
			status = next
		}
	}
	return status
}
