package store

import (
	"context"
	"fmt"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// AccountRepository stores sign-in credentials keyed by canonical email.
type AccountRepository struct {
	backend docstore.Backend
}

func NewAccountRepository(backend docstore.Backend) *AccountRepository {
	return &AccountRepository{backend: backend}
}

// Get returns the account for email, or nil.
func (r *AccountRepository) Get(ctx context.Context, email string) (*types.Account, error) {
	rec, err := r.backend.Get(ctx, CollectionAccounts, email)
	if err != nil || rec == nil {
		return nil, err
	}
	account := decodeAccount(rec)
	return &account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) error {
	fields := map[string]any{
		fieldUserID:       account.UserID,
		fieldPasswordHash: account.PasswordHash,
		fieldProvider:     account.Provider,
		fieldCreatedAt:    utcNow(),
	}
	if err := r.backend.Create(ctx, CollectionAccounts, account.Email, fields); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}
