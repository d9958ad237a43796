// Package lifecycle derives the state of a campaign from its enabled flag,
// its voting window and the current time.
package lifecycle

import (
	"time"

	"github.com/ingenieros-gt/evote/internal/common"
)

type State string

const (
	Pending  State = "pending"
	Active   State = "active"
	Finished State = "finished"
	Disabled State = "disabled"
)

// Evaluate returns the campaign state at now. The window is inclusive at
// both ends: a campaign is still Active at exactly end.
func Evaluate(enabled bool, start, end, now time.Time) State {
	switch {
	case now.After(end):
		return Finished
	case now.Before(start):
		return Pending
	case !enabled:
		return Disabled
	default:
		return Active
	}
}

// NeedsAutoDisable reports whether a stored campaign should be persisted as
// disabled because its window has closed.
func NeedsAutoDisable(enabled bool, end, now time.Time) bool {
	return enabled && now.After(end)
}

// Remaining is the caller's unused quota, floored at zero.
func Remaining(quota, used int) int {
	if used >= quota {
		return 0
	}
	return quota - used
}

// CanVoteRole reports whether the session role may cast ballots.
func CanVoteRole(role string) bool {
	return role == common.RoleVoter || role == common.RoleAdmin
}

// CanVote combines the window, quota and role checks.
func CanVote(state State, remaining int, role string) bool {
	return state == Active && remaining > 0 && CanVoteRole(role)
}
