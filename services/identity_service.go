package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront/models"
	"storefront/repositories"
)

// IdentityService maps a request's account id or session token to a cart owner.
type IdentityService struct {
	store repositories.Store
}

func NewIdentityService(store repositories.Store) *IdentityService {
	return &IdentityService{store: store}
}

// ResolveOwner prefers accountID when set. Otherwise it looks the session
// token up. With mint set, an absent token is generated and an unknown one
// accepted; either way the owner comes back unprovisioned and nothing is
// written until a cart write stores it (provisionOwner).
func (s *IdentityService) ResolveOwner(ctx context.Context, accountID int64, sessionID string, mint bool) (models.Owner, error) {
	if accountID > 0 {
		return models.AccountOwner(accountID), nil
	}

	if sessionID == "" {
		if !mint {
			return models.Owner{}, &NotFoundError{Resource: "session", ID: ""}
		}
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		return models.Owner{}, validationError("session_id must be a UUID")
	}

	guest, err := s.store.Guests().FindByToken(ctx, sessionID)
	if err == nil {
		return models.GuestOwner(guest), nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.Owner{}, fmt.Errorf("find guest: %w", err)
	}
	if !mint {
		return models.Owner{}, &NotFoundError{Resource: "session", ID: sessionID}
	}

	return models.SessionOwner(sessionID), nil
}

// provisionOwner stores the guest behind an unprovisioned owner inside tx, so
// the guest row exists only if the surrounding write commits.
func provisionOwner(ctx context.Context, tx repositories.Repositories, owner models.Owner) (models.Owner, error) {
	if owner.IsProvisioned() {
		return owner, nil
	}
	if owner.SessionID == "" {
		return models.Owner{}, &NotFoundError{Resource: "session", ID: ""}
	}
	guest, err := tx.Guests().Create(ctx, owner.SessionID)
	if err != nil {
		return models.Owner{}, fmt.Errorf("create guest: %w", err)
	}
	return models.GuestOwner(guest), nil
}
