// Package httpapi wires the HTTP surface to the application services.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"restaura/internal/app/listings"
	"restaura/internal/geo"
	"restaura/internal/search"
	"restaura/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (int64, error)
	Profile(ctx context.Context, userID int64) (store.User, error)
	UpdateProfile(ctx context.Context, userID int64, p store.ProfileUpdate) (store.User, error)
}

// ListingService coordinates listing workflows.
type ListingService interface {
	Create(ctx context.Context, ownerID int64, l store.Listing) (store.Listing, error)
	Get(ctx context.Context, id string) (store.Listing, error)
	List(ctx context.Context) ([]store.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]store.Listing, error)
	Search(ctx context.Context, query string) ([]store.Listing, bool, error)
	Filter(ctx context.Context, p search.Params) ([]store.Listing, error)
	Update(ctx context.Context, actorID int64, l store.Listing) (store.Listing, error)
	Delete(ctx context.Context, actorID int64, id string) error
	NearestTo(ctx context.Context, user geo.Point) (listings.Nearest, error)
}

// ReviewService coordinates review workflows.
type ReviewService interface {
	Add(ctx context.Context, authorID int64, listingID string, rating int, comment string) (store.Review, error)
	List(ctx context.Context, listingID string) ([]store.Review, error)
	Delete(ctx context.Context, actorID, reviewID int64) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users    UserService
	listings ListingService
	reviews  ReviewService
}

// New configures a Server with the given service implementations.
func New(users UserService, listings ListingService, reviews ReviewService) *Server {
	return &Server{
		users:    users,
		listings: listings,
		reviews:  reviews,
	}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/v1/users/profile", s.handleProfile)

	mux.HandleFunc("GET /api/v1/listings", s.handleListListings)
	mux.HandleFunc("POST /api/v1/listings", s.handleCreateListing)
	mux.HandleFunc("GET /api/v1/listings/nearest", s.handleNearestListing)
	mux.HandleFunc("GET /api/v1/listings/{id}", s.handleGetListing)
	mux.HandleFunc("PUT /api/v1/listings/{id}", s.handleUpdateListing)
	mux.HandleFunc("DELETE /api/v1/listings/{id}", s.handleDeleteListing)
	mux.HandleFunc("GET /api/v1/listings/{id}/map", s.handleListingMap)
	mux.HandleFunc("GET /api/v1/me/listings", s.handleMyListings)

	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/filter", s.handleFilter)

	mux.HandleFunc("GET /api/v1/listings/{id}/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/v1/listings/{id}/reviews", s.handleCreateReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.handleDeleteReview)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// authedUser resolves the bearer token on the request to a user id. A
// written response means the handler should return immediately.
func (s *Server) authedUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return 0, false
	}
	userID, err := s.users.Resolve(r.Context(), token)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return 0, false
	}
	return userID, true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
