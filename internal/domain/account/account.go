package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

var (
	ErrIDRequired          = errors.New("account: id is required")
	ErrEmailRequired       = errors.New("account: email is required")
	ErrNameRequired        = errors.New("account: name is required")
	ErrPasswordHashMissing = errors.New("account: password hash is required")
	ErrEmailAlreadyUsed    = errors.New("account: email already used")
	ErrNotFound            = errors.New("account: not found")
	ErrOrgNotFound         = errors.New("account: organization not found")
)

type ID string

// Account is an individual platform user.
type Account struct {
	ID           ID
	Email        string
	Name         string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

func NewAccount(params CreateParams) (*Account, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Account{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		AvatarURL:    strings.TrimSpace(params.AvatarURL),
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Profile maps the account onto its messaging participant profile.
func (a *Account) Profile() participant.Profile {
	return participant.UserProfile(string(a.ID), a.Name, a.AvatarURL)
}

// SetAvatarURL updates the display image location.
func (a *Account) SetAvatarURL(url string, now time.Time) {
	a.AvatarURL = strings.TrimSpace(url)
	a.touch(now)
}

func (a *Account) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	a.UpdatedAt = now.UTC()
}

// Organization is a company directory entry. ManagerIDs lists the accounts
// allowed to act as the organization in messaging.
type Organization struct {
	ID         string
	Name       string
	LogoURL    string
	ManagerIDs []string
	CreatedAt  time.Time
}

// Profile maps the organization onto its messaging participant profile.
func (o *Organization) Profile() participant.Profile {
	return participant.OrgProfile(o.ID, o.Name, o.LogoURL)
}

// ManagedBy reports whether the account manages this organization.
func (o *Organization) ManagedBy(id ID) bool {
	for _, manager := range o.ManagerIDs {
		if manager == string(id) {
			return true
		}
	}
	return false
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

type OrgRepository interface {
	ByID(ctx context.Context, id string) (*Organization, error)
	// ManagedBy lists the organizations an account can act as.
	ManagedBy(ctx context.Context, id ID) ([]*Organization, error)
	Save(ctx context.Context, org *Organization) error
}
