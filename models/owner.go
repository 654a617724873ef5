package models

import (
	"fmt"
	"time"
)

// Owner identifies whose cart is being touched. Exactly one of UserID and
// GuestID is set.
type Owner struct {
	UserID    *int64
	GuestID   *int64
	SessionID string
}

func AccountOwner(userID int64) Owner {
	return Owner{UserID: &userID}
}

func GuestOwner(guest *Guest) Owner {
	id := guest.ID
	return Owner{GuestID: &id, SessionID: guest.Token}
}

// SessionOwner is an anonymous owner whose guest row is not stored yet. The
// cart write that first uses it creates the row in its own transaction.
func SessionOwner(token string) Owner {
	return Owner{SessionID: token}
}

func (o Owner) IsGuest() bool {
	return o.GuestID != nil
}

// IsProvisioned reports whether o refers to a stored account or guest.
func (o Owner) IsProvisioned() bool {
	return o.UserID != nil || o.GuestID != nil
}

// Key is the string the owner's cart lock is taken on.
func (o Owner) Key() string {
	if o.UserID != nil {
		return fmt.Sprintf("cart:user:%d", *o.UserID)
	}
	if o.GuestID != nil {
		return fmt.Sprintf("cart:guest:%d", *o.GuestID)
	}
	return "cart:anonymous"
}

// Owns reports whether the line belongs to o.
func (o Owner) Owns(line *CartLine) bool {
	switch {
	case o.UserID != nil:
		return line.UserID != nil && *line.UserID == *o.UserID
	case o.GuestID != nil:
		return line.GuestID != nil && *line.GuestID == *o.GuestID
	}
	return false
}

type Guest struct {
	ID        int64     `json:"id"`
	Token     string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}
