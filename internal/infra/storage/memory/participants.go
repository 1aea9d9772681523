package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// AccountRepository stores accounts in memory. Not suitable for production.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[account.ID]*account.Account
	byEmail map[string]account.ID
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[account.ID]*account.Account),
		byEmail: make(map[string]account.ID),
	}
}

func (r *AccountRepository) ByID(ctx context.Context, id account.ID) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if acct, ok := r.byID[id]; ok {
		return cloneAccount(acct), nil
	}
	return nil, account.ErrNotFound
}

func (r *AccountRepository) ByEmail(ctx context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, account.ErrNotFound
	}
	if acct, ok := r.byID[id]; ok {
		return cloneAccount(acct), nil
	}
	return nil, account.ErrNotFound
}

func (r *AccountRepository) Save(ctx context.Context, acct *account.Account) error {
	if acct == nil || strings.TrimSpace(string(acct.ID)) == "" {
		return account.ErrIDRequired
	}
	emailKey := strings.ToLower(strings.TrimSpace(acct.Email))
	if emailKey == "" {
		return account.ErrEmailRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEmail[emailKey]; ok && existing != acct.ID {
		return account.ErrEmailAlreadyUsed
	}
	r.byEmail[emailKey] = acct.ID
	r.byID[acct.ID] = cloneAccount(acct)
	return nil
}

func cloneAccount(a *account.Account) *account.Account {
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}

// OrgRepository stores organization directory entries in memory.
type OrgRepository struct {
	mu   sync.RWMutex
	byID map[string]*account.Organization
}

func NewOrgRepository() *OrgRepository {
	return &OrgRepository{byID: make(map[string]*account.Organization)}
}

func (r *OrgRepository) ByID(ctx context.Context, id string) (*account.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if org, ok := r.byID[id]; ok {
		return cloneOrg(org), nil
	}
	return nil, account.ErrOrgNotFound
}

func (r *OrgRepository) ManagedBy(ctx context.Context, id account.ID) ([]*account.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	managed := make([]*account.Organization, 0)
	for _, org := range r.byID {
		if org.ManagedBy(id) {
			managed = append(managed, cloneOrg(org))
		}
	}
	return managed, nil
}

func (r *OrgRepository) Save(ctx context.Context, org *account.Organization) error {
	if org == nil || strings.TrimSpace(org.ID) == "" {
		return account.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[org.ID] = cloneOrg(org)
	return nil
}

func cloneOrg(o *account.Organization) *account.Organization {
	if o == nil {
		return nil
	}
	copied := *o
	copied.ManagerIDs = append([]string(nil), o.ManagerIDs...)
	return &copied
}

// DirectoryStore adapts the account and org repositories to the batched
// lookup interface the participant cache consumes.
type DirectoryStore struct {
	Accounts *AccountRepository
	Orgs     *OrgRepository
}

func (s DirectoryStore) UsersByID(ctx context.Context, ids []string) ([]participant.Profile, error) {
	profiles := make([]participant.Profile, 0, len(ids))
	for _, id := range ids {
		acct, err := s.Accounts.ByID(ctx, account.ID(id))
		if err != nil {
			// missing ids stay unresolved; the batch continues
			continue
		}
		profiles = append(profiles, acct.Profile())
	}
	return profiles, nil
}

func (s DirectoryStore) OrgsByID(ctx context.Context, ids []string) ([]participant.Profile, error) {
	profiles := make([]participant.Profile, 0, len(ids))
	for _, id := range ids {
		org, err := s.Orgs.ByID(ctx, id)
		if err != nil {
			continue
		}
		profiles = append(profiles, org.Profile())
	}
	return profiles, nil
}
