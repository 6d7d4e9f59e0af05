package finance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dgellow/finfront/internal/apiclient"
)

// TargetService manages savings goals
type TargetService struct {
	api apiclient.Doer
}

// List returns one page of targets
func (s *TargetService) List(ctx context.Context, p PageParams) (*Page[Target], error) {
	q := url.Values{}
	p.apply(q)
	return list[Target](ctx, s.api, PathTargets, q)
}

// Create adds a target
func (s *TargetService) Create(ctx context.Context, in TargetInput) (*Target, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.TargetAmount == nil || !in.TargetAmount.IsPositive() {
		return nil, fmt.Errorf("target amount must be positive")
	}
	return create[Target](ctx, s.api, PathTargets, in)
}

// Update changes a target
func (s *TargetService) Update(ctx context.Context, id string, in TargetInput) (*Target, error) {
	return update[Target](ctx, s.api, PathTargets, id, in)
}

// Delete removes a target
func (s *TargetService) Delete(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathTargets, id)
}

// Contribute adds money to a target
func (s *TargetService) Contribute(ctx context.Context, id string, in ContributionInput) (*Target, error) {
	path, err := itemPath(PathTargets, id)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	return create[Target](ctx, s.api, path+"/contribute", in)
}
