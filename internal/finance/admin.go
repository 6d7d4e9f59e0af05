package finance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dgellow/finfront/internal/apiclient"
	"github.com/dgellow/finfront/internal/emailutil"
)

// AdminService manages users, admins and permissions. The backend rejects
// these calls with 403 for non-admins.
type AdminService struct {
	api apiclient.Doer
}

// ListUsers returns one page of users
func (s *AdminService) ListUsers(ctx context.Context, p PageParams) (*Page[User], error) {
	q := url.Values{}
	p.apply(q)
	return list[User](ctx, s.api, PathAdminUsers, q)
}

// UpdateUser changes a user's profile, role or status
func (s *AdminService) UpdateUser(ctx context.Context, id string, in UserUpdate) (*User, error) {
	return update[User](ctx, s.api, PathAdminUsers, id, in)
}

// DeleteUser removes a user
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathAdminUsers, id)
}

// ListAdmins returns one page of admins
func (s *AdminService) ListAdmins(ctx context.Context, p PageParams) (*Page[User], error) {
	q := url.Values{}
	p.apply(q)
	return list[User](ctx, s.api, PathAdminAdmins, q)
}

// CreateAdmin adds an admin account
func (s *AdminService) CreateAdmin(ctx context.Context, in AdminInput) (*User, error) {
	in.Email = emailutil.Normalize(in.Email)
	if err := emailutil.Validate(in.Email); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	return create[User](ctx, s.api, PathAdminAdmins, in)
}

// DeleteAdmin removes an admin account
func (s *AdminService) DeleteAdmin(ctx context.Context, id string) error {
	return remove(ctx, s.api, PathAdminAdmins, id)
}

// ListPermissions returns every grantable permission
func (s *AdminService) ListPermissions(ctx context.Context) ([]Permission, error) {
	page, err := list[Permission](ctx, s.api, PathPermissions, nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// AssignPermissions replaces an admin's permissions
func (s *AdminService) AssignPermissions(ctx context.Context, adminID string, permissionIDs []string) (*User, error) {
	path, err := itemPath(PathAdminAdmins, adminID)
	if err != nil {
		return nil, err
	}
	if permissionIDs == nil {
		permissionIDs = []string{}
	}
	resp, err := apiclient.Put[Envelope[User]](ctx, s.api, path+"/permissions",
		map[string][]string{"permissionIds": permissionIDs})
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}
