package session

import (
	"errors"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var ErrNoIdentity = errors.New("session: no authenticated identity")

// Identity is what the messaging core knows about the current session: the
// signed-in individual and every organization it manages. Each of those is
// an identity the session may act as.
type Identity struct {
	User participant.Profile
	Orgs []participant.Profile
}

// Validate checks the session carries a usable individual identity.
func (id Identity) Validate() error {
	if id.User.Ref.IsZero() {
		return ErrNoIdentity
	}
	return nil
}

// Acting lists every participant the session can operate as, individual
// first.
func (id Identity) Acting() []participant.Ref {
	refs := make([]participant.Ref, 0, len(id.Orgs)+1)
	refs = append(refs, id.User.Ref)
	for _, org := range id.Orgs {
		refs = append(refs, org.Ref)
	}
	return refs
}

// Profiles returns the locally known display profiles, used to seed the
// participant cache without a round trip.
func (id Identity) Profiles() []participant.Profile {
	profiles := make([]participant.Profile, 0, len(id.Orgs)+1)
	profiles = append(profiles, id.User)
	profiles = append(profiles, id.Orgs...)
	return profiles
}

// Manages reports whether the session manages the given organization.
func (id Identity) Manages(orgID string) bool {
	for _, org := range id.Orgs {
		if org.Ref.ID == orgID {
			return true
		}
	}
	return false
}

// Owns reports whether the session may act for the given sender: the sender
// is the individual itself or an organization the session manages. This is
// the advisory client-side ownership check; the store's access policy is
// authoritative.
func (id Identity) Owns(sender participant.Ref) bool {
	if sender.Equal(id.User.Ref) {
		return true
	}
	return sender.IsOrg() && id.Manages(sender.ID)
}
