package domain

import "time"

// User is an account able to sign in.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credential is what a user re-enters to confirm a destructive action.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
