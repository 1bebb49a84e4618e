package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/civicbase/pkg/auth"
)

// DefaultSuperuserProfile is the profile name that bypasses permission checks.
const DefaultSuperuserProfile = "SUPER_ADMIN"

// ErrForbidden is returned when a request is not allowed.
var ErrForbidden = errors.New("forbidden")

// PermissionSource loads the permission tags granted by a profile.
type PermissionSource interface {
	Permissions(ctx context.Context, profileID string) ([]string, error)
}

// Decision is the outcome of an allowed request.
type Decision struct {
	Label      string
	Permission string
	Superuser  bool
}

// Authorizer decides whether a caller may run a request.
type Authorizer struct {
	registry  *Registry
	perms     PermissionSource
	superuser string
}

// NewAuthorizer creates an Authorizer. An empty superuser disables the bypass.
func NewAuthorizer(registry *Registry, perms PermissionSource, superuser string) *Authorizer {
	return &Authorizer{
		registry:  registry,
		perms:     perms,
		superuser: superuser,
	}
}

// Registry returns the route table the authorizer resolves against.
func (a *Authorizer) Registry() *Registry {
	return a.registry
}

// Authorize resolves (method, path) and checks that caller holds the
// required permission. A non-empty override replaces the permission the
// route table would require; the route need not be registered then.
//
// The returned decision carries the audit label even when err is
// ErrForbidden, so the rejection is logged under the route's name.
func (a *Authorizer) Authorize(ctx context.Context, caller *auth.Caller, method, path, override string) (Decision, error) {
	res, found := a.registry.Lookup(method, path)
	decision := Decision{Label: res.Label, Permission: res.Permission}
	if !found {
		decision.Label = method + " " + NormalizePath(path)
	}

	if !found && override == "" {
		return decision, ErrForbidden
	}
	if caller == nil {
		return decision, auth.ErrUnauthenticated
	}
	if override != "" {
		decision.Permission = override
	} else if res.Free {
		return decision, nil
	}

	if a.superuser != "" && caller.Profile.Name == a.superuser {
		decision.Superuser = true
		return decision, nil
	}

	granted, err := a.perms.Permissions(ctx, caller.Profile.ID)
	if err != nil {
		return decision, fmt.Errorf("failed to load permissions of profile %s: %w", caller.Profile.ID, err)
	}
	for _, p := range granted {
		if p == decision.Permission {
			return decision, nil
		}
	}
	return decision, ErrForbidden
}

// Granted returns the permission tags caller holds. The superuser holds
// every tag of the registry.
func (a *Authorizer) Granted(ctx context.Context, caller *auth.Caller) ([]string, error) {
	if caller == nil {
		return nil, auth.ErrUnauthenticated
	}
	if a.superuser != "" && caller.Profile.Name == a.superuser {
		return a.registry.Permissions(), nil
	}
	perms, err := a.perms.Permissions(ctx, caller.Profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions of profile %s: %w", caller.Profile.ID, err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}
