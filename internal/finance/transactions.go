package finance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dgellow/finfront/internal/apiclient"
)

// TransactionFilter narrows a transaction listing
type TransactionFilter struct {
	Range    DateRange
	Type     TransactionType
	SourceID string
	PageParams
}

// Query encodes the filter as query parameters
func (f TransactionFilter) Query() url.Values {
	q := f.Range.Query()
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.SourceID != "" {
		q.Set("accountSourceId", f.SourceID)
	}
	f.PageParams.apply(q)
	return q
}

// TransactionService manages transactions
type TransactionService struct {
	api apiclient.Doer
}

// List returns one page of transactions
func (s *TransactionService) List(ctx context.Context, filter TransactionFilter) (*Page[Transaction], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", filter.Type)
	}
	return list[Transaction](ctx, s.api, PathTransactions, filter.Query())
}

// AllPageLimit is the page size All uses when the filter sets none
const AllPageLimit = 100

// All walks every page matching filter, starting at filter.Page, and
// returns the transactions in order
func (s *TransactionService) All(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = AllPageLimit
	}

	var txs []Transaction
	for {
		page, err := s.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("listing transactions page %d: %w", filter.Page, err)
		}
		txs = append(txs, page.Items...)
		if p := page.Pagination; p == nil || filter.Page >= p.TotalPages || len(page.Items) == 0 {
			return txs, nil
		}
		filter.Page++
	}
}

// Get returns one transaction
func (s *TransactionService) Get(ctx context.Context, id string) (*Transaction, error) {
	return get[Transaction](ctx, s.api, PathTransactions, id)
}

// Create records a transaction
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (*Transaction, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	return create[Transaction](ctx, s.api, PathTransactions, in)
}

// Update changes a transaction
func (s *TransactionService) Update(ctx context.Context, id string, in TransactionInput) (*Transaction, error) {
	if in.Type != "" && !in.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", in.Type)
	}
	return update[Transaction](ctx, s.api, PathTransactions, id, in)
}

// Delete removes a transaction
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathTransactions, id)
}

// Classify assigns a category to a transaction
func (s *TransactionService) Classify(ctx context.Context, id, categoryID string) (*Transaction, error) {
	path, err := itemPath(PathTransactions, id)
	if err != nil {
		return nil, err
	}
	if categoryID == "" {
		return nil, fmt.Errorf("category id is required")
	}
	resp, err := apiclient.Patch[Envelope[Transaction]](ctx, s.api, path+"/classify",
		map[string]string{"categoryId": categoryID})
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}
