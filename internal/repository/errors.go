// Package repository holds the thin data-access layer over the relational
// store. Sentinel errors let handlers distinguish expected failure modes
// such as duplicate registrations from genuine store problems without ever
// surfacing driver error text to the end user.
package repository

import "errors"

// ErrUsernameExists is returned when an insert collides with the unique
// index on users.username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when an insert collides with the unique index
// on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrBadIdentifier is returned by Exists when the requested table or column
// is not on the allow-list. Identifiers come from rule strings, not user
// input, so hitting this means a misconfigured ruleset.
var ErrBadIdentifier = errors.New("table or column not allowed")
