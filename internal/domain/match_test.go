package domain

import "testing"

func TestMatchStatusTransitions(t *testing.T) {
	tests := []struct {
		from MatchStatus
		to   MatchStatus
		want bool
	}{
		{MatchStatusScheduled, MatchStatusLive, true},
		{MatchStatusScheduled, MatchStatusPostponed, true},
		{MatchStatusLive, MatchStatusHalfTime, true},
		{MatchStatusHalfTime, MatchStatusLive, true},
		{MatchStatusLive, MatchStatusCompleted, true},
		{MatchStatusPostponed, MatchStatusScheduled, true},

		{MatchStatusScheduled, MatchStatusCompleted, false},
		{MatchStatusCompleted, MatchStatusLive, false},
		{MatchStatusCancelled, MatchStatusScheduled, false},
		{MatchStatusHalfTime, MatchStatusScheduled, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMatchStatusTerminal(t *testing.T) {
	if !MatchStatusCompleted.Terminal() || !MatchStatusCancelled.Terminal() {
		t.Error("completed and cancelled should be terminal")
	}
	if MatchStatusLive.Terminal() || MatchStatusPostponed.Terminal() {
		t.Error("live and postponed should not be terminal")
	}
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleUser, CapRecordEvent, false},
		{RoleLogger, CapRecordEvent, true},
		{RoleLogger, CapManageMatches, false},
		{RoleAdmin, CapManageMatches, true},
		{RoleAdmin, CapViewQuarantine, true},
		{RoleAdmin, CapManageUsers, false},
		{RoleSuperAdmin, CapManageUsers, true},
		{Role("ghost"), CapRecordEvent, false},
	}

	for _, tt := range tests {
		if got := tt.role.Can(tt.cap); got != tt.want {
			t.Errorf("%s.Can(%s) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}
