package participant

import (
	"errors"
	"strings"
)

var (
	ErrKindRequired = errors.New("participant: kind is required")
	ErrIDRequired   = errors.New("participant: id is required")
	ErrInvalidKind  = errors.New("participant: invalid kind")
)

// Kind distinguishes the two participant flavors the platform knows about.
type Kind string

const (
	// KindUser is an individual account.
	KindUser Kind = "user"
	// KindOrg is a company/organization account.
	KindOrg Kind = "org"
)

// ParseKind normalizes a raw kind string.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return KindUser, nil
	case "org", "organization", "company":
		return KindOrg, nil
	case "":
		return "", ErrKindRequired
	default:
		return "", ErrInvalidKind
	}
}

// Ref identifies a participant. Identity equality is (Kind, ID).
type Ref struct {
	Kind Kind
	ID   string
}

// NewRef validates and builds a reference.
func NewRef(kind Kind, id string) (Ref, error) {
	if kind != KindUser && kind != KindOrg {
		return Ref{}, ErrInvalidKind
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, ErrIDRequired
	}
	return Ref{Kind: kind, ID: id}, nil
}

// UserRef is shorthand for an individual reference.
func UserRef(id string) Ref { return Ref{Kind: KindUser, ID: id} }

// OrgRef is shorthand for an organization reference.
func OrgRef(id string) Ref { return Ref{Kind: KindOrg, ID: id} }

// Equal reports identity equality.
func (r Ref) Equal(other Ref) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// IsOrg reports whether the reference points at an organization.
func (r Ref) IsOrg() bool { return r.Kind == KindOrg }

// Less orders references by kind, then id. This is the canonical order used
// for thread participant slots, so a pair lookup is order independent.
func (r Ref) Less(other Ref) bool {
	if r.Kind != other.Kind {
		return r.Kind < other.Kind
	}
	return r.ID < other.ID
}

// Normalize returns the pair in canonical slot order regardless of how it
// was passed in. Normalize(a, b) == Normalize(b, a) for any a, b.
func Normalize(a, b Ref) (Ref, Ref) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}

// Profile carries the display attributes resolved for a reference. Names and
// images live in the user/org directories, never on the thread records.
type Profile struct {
	Ref       Ref
	Name      string
	AvatarURL string
}

// UserProfile builds a display profile for an individual.
func UserProfile(id, name, avatarURL string) Profile {
	return Profile{Ref: UserRef(id), Name: name, AvatarURL: avatarURL}
}

// OrgProfile builds a display profile for an organization.
func OrgProfile(id, name, logoURL string) Profile {
	return Profile{Ref: OrgRef(id), Name: name, AvatarURL: logoURL}
}
