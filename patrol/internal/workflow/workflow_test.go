package workflow

import (
	"testing"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

func history(actions ...string) []*store.Review {
	var out []*store.Review
	for i, a := range actions {
		out = append(out, &store.Review{ID: string(rune('a' + i)), Action: a, CreatedAt: int64(i + 1)})
	}
	return out
}

func TestDeriveStatusEmptyIsPending(t *testing.T) {
	if got := DeriveStatus(nil); got != StatusPending {
		t.Errorf("got %q", got)
	}
}

func TestDeriveStatusLatestWins(t *testing.T) {
	cases := []struct {
		actions []string
		want    string
	}{
		{[]string{ActionApprove}, StatusApproved},
		{[]string{ActionReject}, StatusRejected},
		{[]string{ActionRefine}, StatusNeedsRefinement},
		{[]string{ActionRequestInfo}, StatusNeedsRefinement},
		{[]string{ActionApprove, ActionReject}, StatusRejected},
		{[]string{ActionReject, ActionApprove}, StatusApproved},
		{[]string{ActionRefine, ActionRequestInfo, ActionApprove}, StatusApproved},
		{[]string{ActionApprove, ActionRequestInfo}, StatusNeedsRefinement},
	}
	for _, tc := range cases {
		if got := DeriveStatus(history(tc.actions...)); got != tc.want {
			t.Errorf("%v: got %q, want %q", tc.actions, got, tc.want)
		}
	}
}

func TestNoTerminalStates(t *testing.T) {
	// WHAT: A rejected pattern can still be approved by a later review.
	// WHY: review states are projections of history, never locks.
	h := history(ActionReject, ActionReject, ActionApprove)
	if got := DeriveStatus(h); got != StatusApproved {
		t.Errorf("got %q, want approved", got)
	}
}

func TestDeriveStatusIsPure(t *testing.T) {
	// WHAT: Replaying the same history twice yields the same status.
	h := history(ActionApprove, ActionRefine, ActionRequestInfo)
	if DeriveStatus(h) != DeriveStatus(h) {
		t.Error("fold is not deterministic")
	}
}

func TestStatusFor(t *testing.T) {
	if _, err := StatusFor("escalate"); err == nil {
		t.Error("unknown action accepted")
	}
	st, err := StatusFor(ActionRefine)
	if err != nil || st != StatusNeedsRefinement {
		t.Errorf("got %q, %v", st, err)
	}
}

func TestValidAction(t *testing.T) {
	for _, a := range []string{ActionApprove, ActionReject, ActionRefine, ActionRequestInfo} {
		if !ValidAction(a) {
			t.Errorf("%q should be valid", a)
		}
	}
	if ValidAction("") || ValidAction("APPROVE") {
		t.Error("invalid action accepted")
	}
}
