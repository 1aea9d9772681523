package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/participant"
)

// AccountRepository persists platform accounts.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	col := db.Collection("dir_accounts")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &AccountRepository{col: col}
}

func (r *AccountRepository) ByID(ctx context.Context, id account.ID) (*account.Account, error) {
	var doc accountDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AccountRepository) ByEmail(ctx context.Context, email string) (*account.Account, error) {
	var doc accountDocument
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AccountRepository) Save(ctx context.Context, acct *account.Account) error {
	doc := newAccountDocument(acct)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return account.ErrEmailAlreadyUsed
	}
	return err
}

// OrgRepository persists company directory entries.
type OrgRepository struct {
	col *mongo.Collection
}

func NewOrgRepository(db *mongo.Database) *OrgRepository {
	col := db.Collection("dir_orgs")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "manager_ids", Value: 1}},
	})
	return &OrgRepository{col: col}
}

func (r *OrgRepository) ByID(ctx context.Context, id string) (*account.Organization, error) {
	var doc orgDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrOrgNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrgRepository) ManagedBy(ctx context.Context, id account.ID) ([]*account.Organization, error) {
	cursor, err := r.col.Find(ctx, bson.M{"manager_ids": string(id)})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*account.Organization
	for cursor.Next(ctx) {
		var doc orgDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *OrgRepository) Save(ctx context.Context, org *account.Organization) error {
	doc := newOrgDocument(org)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

// DirectoryStore adapts the two repositories to the batched lookup interface
// the participant cache consumes. Missing IDs are skipped, not errors.
type DirectoryStore struct {
	Accounts *AccountRepository
	Orgs     *OrgRepository
}

func (s DirectoryStore) UsersByID(ctx context.Context, ids []string) ([]participant.Profile, error) {
	cursor, err := s.Accounts.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := make([]participant.Profile, 0, len(ids))
	for cursor.Next(ctx) {
		var doc accountDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		profiles = append(profiles, doc.toAggregate().Profile())
	}
	return profiles, cursor.Err()
}

func (s DirectoryStore) OrgsByID(ctx context.Context, ids []string) ([]participant.Profile, error) {
	cursor, err := s.Orgs.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := make([]participant.Profile, 0, len(ids))
	for cursor.Next(ctx) {
		var doc orgDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		profiles = append(profiles, doc.toAggregate().Profile())
	}
	return profiles, cursor.Err()
}

type accountDocument struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	AvatarURL    string `bson:"avatar_url,omitempty"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func newAccountDocument(a *account.Account) accountDocument {
	return accountDocument{
		ID:           string(a.ID),
		Email:        a.Email,
		Name:         a.Name,
		AvatarURL:    a.AvatarURL,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt.UnixMilli(),
		UpdatedAt:    a.UpdatedAt.UnixMilli(),
	}
}

func (d accountDocument) toAggregate() *account.Account {
	return &account.Account{
		ID:           account.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		AvatarURL:    d.AvatarURL,
		PasswordHash: d.PasswordHash,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

type orgDocument struct {
	ID         string   `bson:"_id"`
	Name       string   `bson:"name"`
	LogoURL    string   `bson:"logo_url,omitempty"`
	ManagerIDs []string `bson:"manager_ids"`
	CreatedAt  int64    `bson:"created_at"`
}

func newOrgDocument(o *account.Organization) orgDocument {
	return orgDocument{
		ID:         o.ID,
		Name:       o.Name,
		LogoURL:    o.LogoURL,
		ManagerIDs: append([]string(nil), o.ManagerIDs...),
		CreatedAt:  o.CreatedAt.UnixMilli(),
	}
}

func (d orgDocument) toAggregate() *account.Organization {
	return &account.Organization{
		ID:         d.ID,
		Name:       d.Name,
		LogoURL:    d.LogoURL,
		ManagerIDs: append([]string(nil), d.ManagerIDs...),
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
}

var (
	_ account.Repository    = (*AccountRepository)(nil)
	_ account.OrgRepository = (*OrgRepository)(nil)
)
