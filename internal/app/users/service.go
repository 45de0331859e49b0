package users

import (
	"context"

	"restaura/internal/store"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, username, email, password string) (int64, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	IssueToken(ctx context.Context, userID int64) (string, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
	RevokeToken(ctx context.Context, token string) error
	UserByID(ctx context.Context, id int64) (store.User, error)
	UpdateProfile(ctx context.Context, userID int64, p store.ProfileUpdate) (store.User, error)
}

// Service exposes account workflows. Signup logs the new user in right
// away, so both Signup and Login hand back a session token.
type Service interface {
	Signup(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (int64, error)
	Profile(ctx context.Context, userID int64) (store.User, error)
	UpdateProfile(ctx context.Context, userID int64, p store.ProfileUpdate) (store.User, error)
}

type service struct {
	store Store
}

// New wires a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Signup(ctx context.Context, username, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userID, err := s.store.CreateUser(ctx, username, email, password)
	if err != nil {
		return "", err
	}
	return s.store.IssueToken(ctx, userID)
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.store.Authenticate(ctx, username, password)
}

func (s *service) Logout(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RevokeToken(ctx, token)
}

func (s *service) Resolve(ctx context.Context, token string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.UserIDByToken(ctx, token)
}

func (s *service) Profile(ctx context.Context, userID int64) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return s.store.UserByID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, p store.ProfileUpdate) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return s.store.UpdateProfile(ctx, userID, p)
}
