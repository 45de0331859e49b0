// Package store provides persistence backed by Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists signals the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized indicates an invalid, revoked, or missing session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

const sessionTTL = 7 * 24 * time.Hour

// Store provides persistence backed by Postgres. Session tokens are JWTs
// whose jti is kept in the sessions table so logout can revoke them.
type Store struct {
	db        *sql.DB
	jwtSecret []byte
}

// New sets up a Store using the provided database handle and token
// signing secret.
func New(db *sql.DB, jwtSecret []byte) *Store {
	return &Store{db: db, jwtSecret: jwtSecret}
}

// User is an account record. The password hash never leaves the store.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Language  string    `json:"language"`
	Currency  string    `json:"currency"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUser registers a new user.
func (s *Store) CreateUser(ctx context.Context, username, email, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var userID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, strings.TrimSpace(email), hash).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return userID, nil
}

// Authenticate validates credentials and returns a signed session token.
func (s *Store) Authenticate(ctx context.Context, username, password string) (string, error) {
	var (
		userID int64
		hash   []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE username = $1
	`, username).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(ctx, userID)
}

// IssueToken creates a session token for a known user id. Used right
// after signup so the new user is logged in immediately.
func (s *Store) IssueToken(ctx context.Context, userID int64) (string, error) {
	return s.issueToken(ctx, userID)
}

func (s *Store) issueToken(ctx context.Context, userID int64) (string, error) {
	jti := uuid.NewString()
	expiresAt := time.Now().Add(sessionTTL)

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, jti, userID, expiresAt); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		ID:        jti,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *Store) parseToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// UserIDByToken resolves a session token to a user id. The signature, the
// expiry, and the session row must all still be valid.
func (s *Store) UserIDByToken(ctx context.Context, token string) (int64, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return 0, err
	}

	var userID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM sessions
		WHERE jti = $1 AND expires_at > now()
	`, claims.ID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnauthorized
		}
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

// RevokeToken logs a session out. Revoking an already-revoked token is
// not an error.
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE jti = $1
	`, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes session rows past their expiry. Run
// periodically from the scheduler in cmd/restaura.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UserByID fetches a user's profile.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, COALESCE(email, ''), name, bio, language, currency, COALESCE(avatar_url, ''), created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.Bio, &u.Language, &u.Currency, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// ProfileUpdate carries the editable profile fields. Empty strings leave
// the stored value untouched, matching the original form behavior.
type ProfileUpdate struct {
	Name      string
	Email     string
	Bio       string
	Language  string
	Currency  string
	AvatarURL string
}

// UpdateProfile applies a partial profile edit and returns the result.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) (User, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name       = COALESCE(NULLIF($2, ''), name),
		    email      = COALESCE(NULLIF($3, ''), email),
		    bio        = COALESCE(NULLIF($4, ''), bio),
		    language   = COALESCE(NULLIF($5, ''), language),
		    currency   = COALESCE(NULLIF($6, ''), currency),
		    avatar_url = COALESCE(NULLIF($7, ''), avatar_url),
		    updated_at = now()
		WHERE id = $1
	`, userID, p.Name, p.Email, p.Bio, p.Language, p.Currency, p.AvatarURL)
	if err != nil {
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return s.UserByID(ctx, userID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
