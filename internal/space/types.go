package space

import "time"

// Space is a named, password-protected room.
type Space struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OwnerID      int64     `json:"owner_id"`
	PasswordHash string    `json:"-"` // never serialised
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}
