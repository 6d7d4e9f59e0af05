// Package finance holds one typed service per backend resource.
package finance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dgellow/finfront/internal/apiclient"
	"github.com/dgellow/finfront/internal/config"
)

// Resource paths
const (
	PathMe             = "/auth/me"
	PathTransactions   = "/transactions"
	PathAccountSources = "/account-sources"
	PathBudgets        = "/budgets"
	PathTargets        = "/targets"
	PathAdminUsers     = "/admin/users"
	PathAdminAdmins    = "/admin/admins"
	PathPermissions    = "/admin/permissions"
	PathChat           = "/chat"
)

// Envelope is the backend's response wrapper
type Envelope[T any] struct {
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Pagination describes one page of a list
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a list result
type Page[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// PageParams selects a page of a list
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
}

// Client groups the resource services
type Client struct {
	Auth           *AuthService
	Transactions   *TransactionService
	AccountSources *AccountSourceService
	Budgets        *BudgetService
	Targets        *TargetService
	Admin          *AdminService
	Chat           *ChatService
}

// New creates the services over d
func New(d apiclient.Doer, endpoints config.Endpoints) *Client {
	return &Client{
		Auth:           &AuthService{api: d, endpoints: endpoints},
		Transactions:   &TransactionService{api: d},
		AccountSources: &AccountSourceService{api: d},
		Budgets:        &BudgetService{api: d},
		Targets:        &TargetService{api: d},
		Admin:          &AdminService{api: d},
		Chat:           &ChatService{api: d},
	}
}

func itemPath(base, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id is required")
	}
	return base + "/" + url.PathEscape(id), nil
}

func list[T any](ctx context.Context, d apiclient.Doer, path string, q url.Values) (*Page[T], error) {
	resp, err := apiclient.Get[Envelope[[]T]](ctx, d, path, apiclient.WithQuery(q))
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: resp.Payload.Data, Pagination: resp.Payload.Pagination}, nil
}

func get[T any](ctx context.Context, d apiclient.Doer, base, id string) (*T, error) {
	path, err := itemPath(base, id)
	if err != nil {
		return nil, err
	}
	resp, err := apiclient.Get[Envelope[T]](ctx, d, path)
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}

func create[T any](ctx context.Context, d apiclient.Doer, path string, body any) (*T, error) {
	resp, err := apiclient.Post[Envelope[T]](ctx, d, path, body)
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}

func update[T any](ctx context.Context, d apiclient.Doer, base, id string, body any) (*T, error) {
	path, err := itemPath(base, id)
	if err != nil {
		return nil, err
	}
	resp, err := apiclient.Patch[Envelope[T]](ctx, d, path, body)
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}

func remove(ctx context.Context, d apiclient.Doer, base, id string) error {
	path, err := itemPath(base, id)
	if err != nil {
		return err
	}
	_, err = apiclient.Delete[Envelope[any]](ctx, d, path)
	return err
}
