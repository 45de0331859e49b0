package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`)).WithArgs("alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.CreateUser(context.Background(), "alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserMissingFields(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	if _, err := s.CreateUser(context.Background(), "  ", "", "pw"); err == nil {
		t.Fatal("expected error for blank username")
	}
	if _, err := s.CreateUser(context.Background(), "bob", "", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestAuthenticateIssuesVerifiableToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery(`SELECT id, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(int64(42), hash))
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := s.Authenticate(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	// The token's jti resolves back to the user while the session row lives.
	mock.ExpectQuery(`SELECT user_id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))

	userID, err := s.UserIDByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("UserIDByToken error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user id 42, got %d", userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery(`SELECT id, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(int64(42), hash))

	if _, err := s.Authenticate(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectQuery(`SELECT id, password_hash`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}))

	if _, err := s.Authenticate(context.Background(), "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserIDByTokenRevokedSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := s.IssueToken(context.Background(), 7)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	// Session row gone: the signature alone is not enough.
	mock.ExpectQuery(`SELECT user_id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	if _, err := s.UserIDByToken(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserIDByTokenForgedSignature(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	issuer := New(db, []byte("other-secret"))
	token, err := issuer.IssueToken(context.Background(), 7)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	s := New(db, []byte("secret"))
	if _, err := s.UserIDByToken(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := s.UserIDByToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage token, got %v", err)
	}
}

func TestRevokeTokenDeletesSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := s.IssueToken(context.Background(), 7)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM sessions
		WHERE jti = $1
	`)).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM sessions
		WHERE expires_at <= now()
	`)).WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := s.PurgeExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredSessions error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 purged rows, got %d", n)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, []byte("secret"))

	mock.ExpectExec(`UPDATE users`).
		WithArgs(int64(7), "New Name", "", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "name", "bio", "language", "currency", "avatar_url", "created_at",
		}).AddRow(int64(7), "alice", "alice@example.com", "New Name", "", "English", "INR", "", time.Now()))

	u, err := s.UpdateProfile(context.Background(), 7, ProfileUpdate{Name: "New Name"})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if u.Name != "New Name" || u.Language != "English" {
		t.Fatalf("unexpected profile: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
