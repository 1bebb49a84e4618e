package users

import (
	"context"
	"time"

	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/entities"
)

// Hooks returns the entities hooks of the users collection: passwords are
// hashed before storage, new accounts start ACTIVE with no failed
// attempts, and re-activating an account clears its lockout.
func Hooks(now func() time.Time) entities.Hooks {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return entities.Hooks{
		Prepare: func(_ context.Context, _, doc crud.Document, id string) error {
			if v, ok := doc["status"]; ok && v == nil {
				delete(doc, "status")
			}
			if pw, ok := doc["password"].(string); ok {
				hash, err := auth.HashPassword(pw)
				if err != nil {
					return err
				}
				doc["password"] = hash
			}

			status, _ := doc["status"].(string)
			if id == "" {
				if status == "" {
					status = auth.StatusActive
					doc["status"] = status
				}
				doc["attempts"] = int64(0)
			}
			switch status {
			case auth.StatusActive:
				doc["attempts"] = int64(0)
				doc["blockedAt"] = nil
			case auth.StatusBlocked:
				doc["blockedAt"] = now()
			}
			return nil
		},
	}
}
