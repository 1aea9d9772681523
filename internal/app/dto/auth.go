package dto

import (
	"time"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/session"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
)

type AccountProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	Account AccountProfile `json:"account"`
	Token   string         `json:"token"`
}

// IdentityResponse lists every participant the session may act as.
type IdentityResponse struct {
	User Participant   `json:"user"`
	Orgs []Participant `json:"orgs,omitempty"`
}

func MapAccountProfile(acct *account.Account) AccountProfile {
	if acct == nil {
		return AccountProfile{}
	}
	return AccountProfile{
		ID:        string(acct.ID),
		Email:     acct.Email,
		Name:      acct.Name,
		AvatarURL: acct.AvatarURL,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}

func NewAuthResponse(acct *account.Account, token string) AuthResponse {
	return AuthResponse{Account: MapAccountProfile(acct), Token: token}
}

func MapIdentity(identity session.Identity) IdentityResponse {
	resp := IdentityResponse{User: MapParticipant(identity.User)}
	for _, org := range identity.Orgs {
		resp.Orgs = append(resp.Orgs, MapParticipant(org))
	}
	return resp
}
