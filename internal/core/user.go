package core

import "time"

// User is an account owning expense records. Every query against the
// store is scoped by the user's ID.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
