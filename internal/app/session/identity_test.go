package session

import (
	"errors"
	"testing"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

func TestIdentityActingOrder(t *testing.T) {
	id := Identity{
		User: participant.UserProfile("u1", "Noah", ""),
		Orgs: []participant.Profile{
			participant.OrgProfile("o1", "Fields Development", ""),
			participant.OrgProfile("o2", "Summit Properties", ""),
		},
	}
	acting := id.Acting()
	if len(acting) != 3 {
		t.Fatalf("expected 3 acting refs, got %d", len(acting))
	}
	if !acting[0].Equal(participant.UserRef("u1")) {
		t.Fatalf("individual must come first, got %v", acting[0])
	}
}

func TestIdentityOwns(t *testing.T) {
	id := Identity{
		User: participant.UserProfile("u1", "Noah", ""),
		Orgs: []participant.Profile{participant.OrgProfile("o1", "Fields Development", "")},
	}
	cases := []struct {
		name   string
		sender participant.Ref
		want   bool
	}{
		{"self", participant.UserRef("u1"), true},
		{"managed org", participant.OrgRef("o1"), true},
		{"other user", participant.UserRef("u2"), false},
		{"unmanaged org", participant.OrgRef("o2"), false},
		{"user id colliding with org id", participant.UserRef("o1"), false},
	}
	for _, tc := range cases {
		if got := id.Owns(tc.sender); got != tc.want {
			t.Errorf("%s: Owns(%v) = %v, want %v", tc.name, tc.sender, got, tc.want)
		}
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := (Identity{}).Validate(); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	id := Identity{User: participant.UserProfile("u1", "Noah", "")}
	if err := id.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
