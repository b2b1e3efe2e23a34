// Package queue defines the auth events exchanged over the message broker
// and the publisher/consumer pair that moves them. Events are an audit
// trail, not a control path: every publish is best-effort and a broker
// outage never blocks a login or registration.
package queue

// Event kinds carried on the auth.events queue.
const (
	EventRegistered = "user.registered"
	EventLogin      = "user.login"
)

// AuthEvent is published when an account is created or a login succeeds. It
// carries enough for downstream consumers to log or notify without querying
// the primary database. Passwords and hashes never appear here.
type AuthEvent struct {
	Kind     string `json:"kind"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	At       string `json:"at"`
}
