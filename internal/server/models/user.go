// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered identity. TokenHash is the bcrypt hash of the bearer
// secret handed out once at registration and must never leave the server.
type User struct {
	ID        string
	Name      string
	PublicKey string
	TokenHash []byte
	CreatedAt time.Time
}

// PublicProfile is the part of a User other clients may see.
type PublicProfile struct {
	ID        string `json:"user_id"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}

// Profile strips the credential from u.
func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, PublicKey: u.PublicKey}
}
