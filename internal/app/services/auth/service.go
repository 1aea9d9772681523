package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/session"
	domainaccount "github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
	domainauth "github.com/noahjacobs/connectcre-platform-sub001/internal/domain/auth"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrNotConfigured      = errors.New("auth: service missing dependencies")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service issues and resolves session tokens for platform accounts.
type Service struct {
	Accounts   domainaccount.Repository
	Orgs       domainaccount.OrgRepository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	Account *domainaccount.Account
	Token   string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, domainaccount.ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domainaccount.ErrNameRequired
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	acct, err := domainaccount.NewAccount(domainaccount.CreateParams{
		ID:           domainaccount.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Accounts.Save(ctx, acct); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("account registered", "account_id", acct.ID, "email", acct.Email)
	}
	return &AuthResult{Account: acct, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	acct, err := s.Accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainaccount.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(acct.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("account authenticated", "account_id", acct.ID)
	}
	return &AuthResult{Account: acct, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// ResolveToken maps a bearer token onto the session identity the messaging
// core needs: the account itself plus every organization it manages.
func (s *Service) ResolveToken(ctx context.Context, token string) (session.Identity, error) {
	if err := s.ensureDependencies(); err != nil {
		return session.Identity{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return session.Identity{}, domainauth.ErrTokenRequired
	}
	stored, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return session.Identity{}, err
	}
	if stored.Expired(time.Now()) {
		_ = s.Sessions.Delete(ctx, stored.Token)
		return session.Identity{}, domainauth.ErrSessionNotFound
	}
	acct, err := s.Accounts.ByID(ctx, stored.AccountID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, stored.Token)
		if errors.Is(err, domainaccount.ErrNotFound) {
			return session.Identity{}, domainauth.ErrSessionNotFound
		}
		return session.Identity{}, err
	}
	return s.Identity(ctx, acct)
}

// Identity assembles the acting identity set for an account.
func (s *Service) Identity(ctx context.Context, acct *domainaccount.Account) (session.Identity, error) {
	identity := session.Identity{User: acct.Profile()}
	orgs, err := s.Orgs.ManagedBy(ctx, acct.ID)
	if err != nil {
		// A directory hiccup degrades to a personal-only session rather
		// than blocking sign-in.
		if s.Logger != nil {
			s.Logger.Warn("managed org lookup failed", "account_id", acct.ID, "error", err)
		}
		return identity, nil
	}
	for _, org := range orgs {
		identity.Orgs = append(identity.Orgs, org.Profile())
	}
	return identity, nil
}

func (s *Service) issueSession(ctx context.Context, acct *domainaccount.Account) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	stored, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:     domainauth.Token(token),
		AccountID: acct.ID,
		TTL:       s.sessionTTL(),
		Now:       time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, stored); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	if s.Accounts == nil || s.Orgs == nil || s.Sessions == nil || s.Passwords == nil || s.Tokens == nil {
		return ErrNotConfigured
	}
	return nil
}
