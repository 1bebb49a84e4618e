package profiles

import (
	"context"
	"fmt"
	"sort"

	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/entities"
)

// PermissionSet reports whether a tag is a known permission.
type PermissionSet interface {
	HasPermission(tag string) bool
}

// Invalidator drops cached permissions of a profile.
type Invalidator interface {
	Invalidate(ctx context.Context, profileID string)
}

// Hooks returns the entities hooks of the profiles collection. inv may be
// nil when permissions are not cached.
func Hooks(store *Store, known PermissionSet, inv Invalidator) entities.Hooks {
	return entities.Hooks{
		Prepare: func(_ context.Context, body, doc crud.Document, id string) error {
			raw, present := body["permissions"]
			if !present {
				if id == "" {
					doc["permissions"] = []string{}
				}
				return nil
			}
			perms, err := parsePermissions(raw, known)
			if err != nil {
				return err
			}
			doc["permissions"] = perms
			return nil
		},
		AfterWrite: func(ctx context.Context, q crud.Querier, saved, doc crud.Document) error {
			perms, ok := doc["permissions"].([]string)
			if !ok {
				return nil
			}
			return store.Replace(ctx, q, saved.ID(), perms)
		},
		Committed: func(ctx context.Context, saved crud.Document) {
			if inv != nil {
				inv.Invalidate(ctx, saved.ID())
			}
		},
		Decorate: func(ctx context.Context, docs []crud.Document) error {
			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				ids = append(ids, d.ID())
			}
			byProfile, err := store.PermissionsFor(ctx, ids)
			if err != nil {
				return err
			}
			for _, d := range docs {
				perms := byProfile[d.ID()]
				if perms == nil {
					perms = []string{}
				}
				d["permissions"] = perms
			}
			return nil
		},
		AfterDelete: func(ctx context.Context, ids []string) {
			if inv == nil {
				return
			}
			for _, id := range ids {
				inv.Invalidate(ctx, id)
			}
		},
	}
}

func parsePermissions(raw any, known PermissionSet) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	var tags []string
	switch v := raw.(type) {
	case []string:
		tags = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, crud.NewValidationError("permissions must be a list of strings")
			}
			tags = append(tags, s)
		}
	default:
		return nil, crud.NewValidationError("permissions must be a list of strings")
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	var msgs []string
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if known != nil && !known.HasPermission(t) {
			msgs = append(msgs, fmt.Sprintf("permissions: %s is not a known permission", t))
			continue
		}
		out = append(out, t)
	}
	if len(msgs) > 0 {
		return nil, crud.NewValidationError(msgs...)
	}
	sort.Strings(out)
	return out, nil
}
