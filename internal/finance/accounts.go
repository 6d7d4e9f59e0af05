package finance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dgellow/finfront/internal/apiclient"
)

// AccountSourceService manages wallets and bank accounts
type AccountSourceService struct {
	api apiclient.Doer
}

// List returns one page of account sources
func (s *AccountSourceService) List(ctx context.Context, p PageParams) (*Page[AccountSource], error) {
	q := url.Values{}
	p.apply(q)
	return list[AccountSource](ctx, s.api, PathAccountSources, q)
}

// Create adds an account source
func (s *AccountSourceService) Create(ctx context.Context, in AccountSourceInput) (*AccountSource, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return create[AccountSource](ctx, s.api, PathAccountSources, in)
}

// Update changes an account source
func (s *AccountSourceService) Update(ctx context.Context, id string, in AccountSourceInput) (*AccountSource, error) {
	return update[AccountSource](ctx, s.api, PathAccountSources, id, in)
}

// Delete removes an account source
func (s *AccountSourceService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathAccountSources, id)
}

// Transfer moves money between two account sources
func (s *AccountSourceService) Transfer(ctx context.Context, in TransferInput) (*Transaction, error) {
	if in.FromID == "" || in.ToID == "" {
		return nil, fmt.Errorf("source and destination are required")
	}
	if in.FromID == in.ToID {
		return nil, fmt.Errorf("cannot transfer to the same account source")
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	return create[Transaction](ctx, s.api, PathAccountSources+"/transfer", in)
}
