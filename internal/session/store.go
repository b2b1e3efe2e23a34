// Package session provides the server-side session state for the portal.
// Each client is identified by an opaque UUID carried in a cookie; the
// session data lives in a single Redis hash keyed by that identifier. The
// Store hands out Session objects that expose the read/write/rotate/destroy
// capability set; nothing else in the application touches the Redis keys
// directly.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sess:"

// Keys written on successful authentication. HasUser checks AuthUsername
// only: presence of the username field is the sole definition of logged in.
const (
	AuthUsername = "username"
	AuthUserID   = "user_id"
	AuthIsAdmin  = "is_admin"
)

// Store creates and resolves sessions against a Redis backend.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore wraps a Redis client. ttl bounds how long an idle session
// survives; every write refreshes it.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Start resolves the session for the identifier carried by the client, or
// mints a fresh one when the identifier is empty or no longer backed by a
// hash (create on first contact). The second return reports whether a new
// identifier was issued and the caller must re-set the cookie.
func (s *Store) Start(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		n, err := s.rdb.Exists(ctx, keyPrefix+id).Result()
		if err != nil {
			return nil, false, err
		}
		if n == 1 {
			return &Session{id: id, store: s}, false, nil
		}
	}
	fresh := &Session{id: uuid.NewString(), store: s}
	// Reserve the hash so concurrent requests resolve to the same session.
	if err := s.rdb.HSet(ctx, fresh.key(), "_created", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return nil, false, err
	}
	if err := s.rdb.Expire(ctx, fresh.key(), s.ttl).Err(); err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// Session is one client's server-side state. It is not safe for concurrent
// use; each request works on its own instance.
type Session struct {
	id    string
	store *Store
}

func (ss *Session) ID() string  { return ss.id }
func (ss *Session) key() string { return keyPrefix + ss.id }

// Get returns the value stored under field, or "" when absent.
func (ss *Session) Get(ctx context.Context, field string) (string, error) {
	v, err := ss.store.rdb.HGet(ctx, ss.key(), field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// Set writes one field and refreshes the session TTL.
func (ss *Session) Set(ctx context.Context, field, value string) error {
	if err := ss.store.rdb.HSet(ctx, ss.key(), field, value).Err(); err != nil {
		return err
	}
	return ss.store.rdb.Expire(ctx, ss.key(), ss.store.ttl).Err()
}

// Unset removes the named fields. Missing fields are not an error.
func (ss *Session) Unset(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return ss.store.rdb.HDel(ctx, ss.key(), fields...).Err()
}

// Rotate issues a new session identifier and moves the existing data under
// it. The old identifier is dead the moment RENAME completes, which is what
// defeats fixation: rotation must happen before any authenticated state is
// written, so an attacker who planted the pre-login identifier holds a key
// to nothing.
func (ss *Session) Rotate(ctx context.Context) error {
	next := uuid.NewString()
	err := ss.store.rdb.Rename(ctx, ss.key(), keyPrefix+next).Err()
	if err != nil {
		// RENAME fails when the source hash expired mid-request; start the
		// rotated session empty rather than failing the login.
		if err := ss.store.rdb.HSet(ctx, keyPrefix+next, "_created", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
			return err
		}
	}
	ss.id = next
	return ss.store.rdb.Expire(ctx, ss.key(), ss.store.ttl).Err()
}

// Destroy deletes the whole session hash. Destroying an already-destroyed
// session is a no-op.
func (ss *Session) Destroy(ctx context.Context) error {
	return ss.store.rdb.Del(ctx, ss.key()).Err()
}

// Take reads and deletes the named fields in one shot, returning values in
// the order the keys were given, with "" for any field not present. This is
// the one-shot carry used to move form state across a redirect; a second
// Take of the same keys yields empties.
func (ss *Session) Take(ctx context.Context, fields ...string) ([]string, error) {
	vals, err := ss.store.rdb.HMGet(ctx, ss.key(), fields...).Result()
	if err != nil {
		return nil, err
	}
	if err := ss.store.rdb.HDel(ctx, ss.key(), fields...).Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(fields))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// Fields lists every field name currently stored in the session hash.
func (ss *Session) Fields(ctx context.Context) ([]string, error) {
	return ss.store.rdb.HKeys(ctx, ss.key()).Result()
}

// HasUser reports whether the session belongs to an authenticated principal.
func (ss *Session) HasUser(ctx context.Context) (bool, error) {
	v, err := ss.Get(ctx, AuthUsername)
	if err != nil {
		return false, err
	}
	return v != "", nil
}
