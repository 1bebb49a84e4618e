package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/civicbase/pkg/catalog"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/entities"
)

// SeedActor is recorded as the creator of seeded records.
const SeedActor = "system"

// Admin describes the bootstrap administrator.
type Admin struct {
	Email    string
	UserName string
	Password string
	// Profile is the name of the superuser profile.
	Profile string
}

// SeedAdmin creates the superuser profile and the administrator account
// when the users table is empty. It reports whether an account was created.
func SeedAdmin(ctx context.Context, store *Store, svc *entities.Service, admin Admin) (bool, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	profileID, err := ensureProfile(ctx, svc, admin.Profile)
	if err != nil {
		return false, err
	}

	users, err := svc.Controller(catalog.Users)
	if err != nil {
		return false, err
	}
	_, err = users.Create(ctx, crud.Document{
		"email":     admin.Email,
		"userName":  admin.UserName,
		"password":  admin.Password,
		"firstName": "Admin",
		"profile":   profileID,
	}, SeedActor)
	if err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}
	return true, nil
}

func ensureProfile(ctx context.Context, svc *entities.Service, name string) (string, error) {
	profiles, err := svc.Controller(catalog.Profiles)
	if err != nil {
		return "", err
	}
	found, err := svc.Repository(catalog.Profiles).Search(ctx, crud.Where(crud.Eq("name", name)))
	if err != nil {
		return "", fmt.Errorf("find profile %s: %w", name, err)
	}
	if len(found) > 0 {
		return found[0].ID(), nil
	}
	created, err := profiles.Create(ctx, crud.Document{
		"name":        name,
		"description": "Unrestricted access",
	}, SeedActor)
	if err != nil {
		var rejected *crud.RejectedError
		if errors.As(err, &rejected) {
			return "", fmt.Errorf("create profile %s: %s", name, rejected.Message)
		}
		return "", fmt.Errorf("create profile %s: %w", name, err)
	}
	return created.ID(), nil
}
