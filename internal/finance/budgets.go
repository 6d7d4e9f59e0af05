package finance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dgellow/finfront/internal/apiclient"
)

// BudgetService manages spending plans
type BudgetService struct {
	api apiclient.Doer
}

// List returns one page of budgets
func (s *BudgetService) List(ctx context.Context, p PageParams) (*Page[Budget], error) {
	q := url.Values{}
	p.apply(q)
	return list[Budget](ctx, s.api, PathBudgets, q)
}

// Create adds a budget
func (s *BudgetService) Create(ctx context.Context, in BudgetInput) (*Budget, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Amount == nil || !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	return create[Budget](ctx, s.api, PathBudgets, in)
}

// Update changes a budget
func (s *BudgetService) Update(ctx context.Context, id string, in BudgetInput) (*Budget, error) {
	return update[Budget](ctx, s.api, PathBudgets, id, in)
}

// Delete removes a budget
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathBudgets, id)
}
