package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

// bcryptOf matches an argument that is a bcrypt hash of plain and is not the
// plaintext itself.
type bcryptOf struct{ plain string }

func (b bcryptOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok || s == b.plain {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(b.plain)) == nil
}

func newMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func TestCreateHashesPassword(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO users (username, email, password_hash, is_admin) VALUES (?,?,?,?)")).
		WithArgs("john", "john@example.com", bcryptOf{plain: "Secret1@"}, false).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), "john@example.com", "john", "Secret1@", false, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if id != 7 {
		t.Fatalf("Create() id = %d, want 7", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDuplicateKey(t *testing.T) {
	for _, tc := range []struct {
		name    string
		drvErr  string
		wantErr error
	}{
		{"username", "Error 1062 (23000): Duplicate entry 'john' for key 'users.username'", ErrUsernameExists},
		{"email", "Error 1062 (23000): Duplicate entry 'john@example.com' for key 'users.email'", ErrEmailExists},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMock(t)
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(errors.New(tc.drvErr))

			_, err := repo.Create(context.Background(), "john@example.com", "john", "Secret1@", false, bcrypt.MinCost)
			if err != tc.wantErr {
				t.Fatalf("Create() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetByUsername(t *testing.T) {
	repo, mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("Secret1@"), bcrypt.MinCost)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_admin", "created_at"}).
		AddRow(3, "john", "john@example.com", string(hash), true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id,username,email,password_hash,is_admin,created_at FROM users WHERE username=? LIMIT 1")).
		WithArgs("john").
		WillReturnRows(rows)

	u, err := repo.GetByUsername(context.Background(), "john")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if u.ID != 3 || u.Username != "john" || !u.IsAdmin {
		t.Fatalf("GetByUsername() = %+v", u)
	}
	if u.PasswordHash == "Secret1@" {
		t.Fatalf("stored password equals the plaintext")
	}
}

func TestGetByUsernameNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if err != sql.ErrNoRows {
		t.Fatalf("GetByUsername() error = %v, want sql.ErrNoRows", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE username=? LIMIT 1")).
		WithArgs("john").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	ok, err := repo.Exists(context.Background(), "users", "username", "john")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true", ok, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE email=? LIMIT 1")).
		WithArgs("free@example.com").
		WillReturnError(sql.ErrNoRows)
	ok, err = repo.Exists(context.Background(), "users", "email", "free@example.com")
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v; want false", ok, err)
	}
}

func TestExistsRejectsUnknownIdentifiers(t *testing.T) {
	repo, _ := newMock(t)

	for _, tc := range [][2]string{
		{"users", "password_hash"},
		{"users;DROP TABLE users", "username"},
		{"sessions", "id"},
	} {
		if _, err := repo.Exists(context.Background(), tc[0], tc[1], "x"); !errors.Is(err, ErrBadIdentifier) {
			t.Fatalf("Exists(%q,%q) error = %v, want ErrBadIdentifier", tc[0], tc[1], err)
		}
	}
}
