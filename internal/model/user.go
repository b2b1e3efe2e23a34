package model

import "time"

// User represents one registered principal as stored in the `users` table.
// The password is never held in plaintext; only the bcrypt hash crosses the
// repository boundary. IsAdmin is the single role distinction the portal
// knows about.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	Email        – contact address captured at registration.
//	PasswordHash – bcrypt hashed password.
//	IsAdmin      – whether the account has administrator access.
//	CreatedAt    – timestamp of registration.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique)
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsAdmin      bool      // users.is_admin
	CreatedAt    time.Time // users.created_at
}
