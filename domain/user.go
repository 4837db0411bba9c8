package domain

import "time"

// User is a directory entry. The username is the opaque identity every
// other component keys on; it is immutable once created.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
