package store

import (
	"context"
	"fmt"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	backend docstore.Backend
}

func NewUserRepository(backend docstore.Backend) *UserRepository {
	return &UserRepository{backend: backend}
}

// Get returns the user, or nil when it does not exist.
func (r *UserRepository) Get(ctx context.Context, id string) (*types.User, error) {
	rec, err := r.backend.Get(ctx, CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	user := decodeUser(rec)
	return &user, nil
}

// GetRecord returns the sanitized user document as stored.
func (r *UserRepository) GetRecord(ctx context.Context, id string) (docstore.Record, error) {
	return r.backend.Get(ctx, CollectionUsers, id)
}

// GetMany returns the existing users among ids. An empty id set returns an
// empty slice without touching the backend.
func (r *UserRepository) GetMany(ctx context.Context, ids []string) ([]types.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []types.User{}, nil
	}
	recs, err := r.backend.GetMany(ctx, CollectionUsers, ids)
	if err != nil {
		return nil, err
	}
	return decodeUsers(recs), nil
}

// FindByUsername returns the user holding username, or nil.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	q := docstore.Query{Collection: CollectionUsers}.Where(fieldUsername, username)
	recs, err := r.backend.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	user := decodeUser(recs[0])
	return &user, nil
}

// Create writes the user document along with the bookkeeping fields the
// auth flow owns.
func (r *UserRepository) Create(ctx context.Context, user types.User, provider string) (types.User, error) {
	fields := map[string]any{
		fieldName:         user.Name,
		fieldUsername:     user.Username,
		fieldPhotoURL:     user.PhotoURL,
		fieldSkills:       skillsValue(user.Skills),
		fieldSocials:      socialsValue(user.Socials),
		fieldCreatedAt:    utcNow(),
		fieldLoginCount:   0,
		fieldProviderData: map[string]any{"providerId": provider},
	}
	if err := r.backend.Create(ctx, CollectionUsers, user.ID, fields); err != nil {
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Delete removes the user document. Deleting a missing user is not an error.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.backend.Delete(ctx, CollectionUsers, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// Update merges the set fields of u into the user document.
func (r *UserRepository) Update(ctx context.Context, id string, u types.UserUpdate) error {
	if u.Empty() {
		return nil
	}
	fields := make(map[string]any)
	if u.Name != nil {
		fields[fieldName] = *u.Name
	}
	if u.Username != nil {
		fields[fieldUsername] = *u.Username
	}
	if u.PhotoURL != nil {
		fields[fieldPhotoURL] = *u.PhotoURL
	}
	if u.Skills != nil {
		fields[fieldSkills] = skillsValue(u.Skills)
	}
	if u.Socials != nil {
		fields[fieldSocials] = socialsValue(*u.Socials)
	}
	return mapMergeErr(r.backend.Merge(ctx, CollectionUsers, id, fields))
}

// RecordLogin stamps the login time and bumps the login counter.
func (r *UserRepository) RecordLogin(ctx context.Context, id string) error {
	fields := map[string]any{
		fieldLastLoginAt: utcNow(),
		fieldLoginCount:  docstore.Increment(1),
	}
	return mapMergeErr(r.backend.Merge(ctx, CollectionUsers, id, fields))
}
