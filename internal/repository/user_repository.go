package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/auth-portal/internal/model"
	"github.com/iliyamo/auth-portal/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create registers a user and returns the new ID. The password is hashed
// with bcrypt before it reaches the driver; the plaintext is neither stored
// nor logged. A duplicate-key violation maps to the matching sentinel error.
func (r *UserRepo) Create(ctx context.Context, email, username, password string, isAdmin bool, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, is_admin) VALUES (?,?,?,?)",
		username, email, hash, isAdmin)
	if err != nil {
		// MySQL duplicate entry: error 1062 names the violated index
		if msg := strings.ToLower(err.Error()); strings.Contains(msg, "1062") {
			if strings.Contains(msg, "email") {
				return 0, ErrEmailExists
			}
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username. sql.ErrNoRows signals an
// unknown user.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,is_admin,created_at FROM users WHERE username=? LIMIT 1",
		username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// allowedColumns lists the identifiers Exists may interpolate. SQL
// placeholders cannot stand in for table or column names, so the names are
// checked here instead; anything a ruleset refers to must be listed.
var allowedColumns = map[string]map[string]bool{
	"users": {"username": true, "email": true},
}

// Exists reports whether value is already present in table.column. It backs
// the "unique" validation rule.
func (r *UserRepo) Exists(ctx context.Context, table, column, value string) (bool, error) {
	if !allowedColumns[table][column] {
		return false, fmt.Errorf("%w: %s.%s", ErrBadIdentifier, table, column)
	}
	var one int
	err := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s=? LIMIT 1", table, column),
		value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
