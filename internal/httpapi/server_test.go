package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"restaura/internal/app/listings"
	"restaura/internal/geo"
	"restaura/internal/search"
	"restaura/internal/store"
)

type stubUserService struct {
	token      string
	tokenErr   error
	userID     int64
	resolveErr error

	profile    store.User
	profileErr error

	lastToken  string
	loggedOut  []string
	lastUpdate store.ProfileUpdate
}

func (s *stubUserService) Signup(_ context.Context, username, email, password string) (string, error) {
	return s.token, s.tokenErr
}

func (s *stubUserService) Login(_ context.Context, username, password string) (string, error) {
	return s.token, s.tokenErr
}

func (s *stubUserService) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubUserService) Resolve(_ context.Context, token string) (int64, error) {
	s.lastToken = token
	if s.resolveErr != nil {
		return 0, s.resolveErr
	}
	return s.userID, nil
}

func (s *stubUserService) Profile(_ context.Context, userID int64) (store.User, error) {
	return s.profile, s.profileErr
}

func (s *stubUserService) UpdateProfile(_ context.Context, userID int64, p store.ProfileUpdate) (store.User, error) {
	s.lastUpdate = p
	return s.profile, s.profileErr
}

type stubListingService struct {
	listResponse []store.Listing
	listErr      error

	single    store.Listing
	singleErr error

	created   store.Listing
	createErr error

	updated   store.Listing
	updateErr error

	deleteErr error

	searchResponse []store.Listing
	searchOK       bool
	searchErr      error
	lastQuery      string

	filterResponse []store.Listing
	filterErr      error
	lastParams     search.Params

	nearest    listings.Nearest
	nearestErr error
	lastPoint  geo.Point

	lastOwner int64
	deleted   []string
}

func (s *stubListingService) Create(_ context.Context, ownerID int64, l store.Listing) (store.Listing, error) {
	s.lastOwner = ownerID
	if s.createErr != nil {
		return store.Listing{}, s.createErr
	}
	s.created = l
	return l, nil
}

func (s *stubListingService) Get(_ context.Context, id string) (store.Listing, error) {
	return s.single, s.singleErr
}

func (s *stubListingService) List(_ context.Context) ([]store.Listing, error) {
	return s.listResponse, s.listErr
}

func (s *stubListingService) ListByOwner(_ context.Context, ownerID int64) ([]store.Listing, error) {
	s.lastOwner = ownerID
	return s.listResponse, s.listErr
}

func (s *stubListingService) Search(_ context.Context, query string) ([]store.Listing, bool, error) {
	s.lastQuery = query
	return s.searchResponse, s.searchOK, s.searchErr
}

func (s *stubListingService) Filter(_ context.Context, p search.Params) ([]store.Listing, error) {
	s.lastParams = p
	return s.filterResponse, s.filterErr
}

func (s *stubListingService) Update(_ context.Context, actorID int64, l store.Listing) (store.Listing, error) {
	s.lastOwner = actorID
	if s.updateErr != nil {
		return store.Listing{}, s.updateErr
	}
	s.updated = l
	return l, nil
}

func (s *stubListingService) Delete(_ context.Context, actorID int64, id string) error {
	s.lastOwner = actorID
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

func (s *stubListingService) NearestTo(_ context.Context, user geo.Point) (listings.Nearest, error) {
	s.lastPoint = user
	return s.nearest, s.nearestErr
}

type stubReviewService struct {
	reviews    []store.Review
	listErr    error
	added      store.Review
	addErr     error
	deleteErr  error
	lastAuthor int64
	deleted    []int64
}

func (s *stubReviewService) Add(_ context.Context, authorID int64, listingID string, rating int, comment string) (store.Review, error) {
	s.lastAuthor = authorID
	if s.addErr != nil {
		return store.Review{}, s.addErr
	}
	s.added = store.Review{ListingID: listingID, AuthorID: authorID, Rating: rating, Comment: comment}
	return s.added, nil
}

func (s *stubReviewService) List(_ context.Context, listingID string) ([]store.Review, error) {
	return s.reviews, s.listErr
}

func (s *stubReviewService) Delete(_ context.Context, actorID, reviewID int64) error {
	s.lastAuthor = actorID
	s.deleted = append(s.deleted, reviewID)
	return s.deleteErr
}

func newTestServer(users *stubUserService, lst *stubListingService, revs *stubReviewService) http.Handler {
	if users == nil {
		users = &stubUserService{userID: 7}
	}
	if lst == nil {
		lst = &stubListingService{}
	}
	if revs == nil {
		revs = &stubReviewService{}
	}
	return New(users, lst, revs).Routes()
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSignupReturnsToken(t *testing.T) {
	users := &stubUserService{token: "new-token"}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup",
		signupRequest{Username: "alice", Email: "a@example.com", Password: "pw"}, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp tokenResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "new-token" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	users := &stubUserService{tokenErr: store.ErrUserExists}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup",
		signupRequest{Username: "alice", Password: "pw"}, "")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	users := &stubUserService{tokenErr: store.ErrInvalidCredentials}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Username: "alice", Password: "wrong"}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	users := &stubUserService{}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/logout", nil, "session-token")

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if len(users.loggedOut) != 1 || users.loggedOut[0] != "session-token" {
		t.Fatalf("unexpected logout calls: %v", users.loggedOut)
	}
}

func TestCreateListingRequiresAuth(t *testing.T) {
	lst := &stubListingService{}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/listings",
		listingRequest{Title: "Cabin"}, "")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateListingLocationNotFound(t *testing.T) {
	lst := &stubListingService{createErr: listings.ErrLocationNotFound}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/listings",
		listingRequest{Title: "Cabin", Location: "Nowhere"}, "token")

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestCreateListingPassesOwner(t *testing.T) {
	users := &stubUserService{userID: 42}
	lst := &stubListingService{}
	handler := newTestServer(users, lst, nil)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/listings",
		listingRequest{Title: "Cabin", Location: "Manali", Country: "India", Category: "Mountains", Price: 100}, "token")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if lst.lastOwner != 42 {
		t.Fatalf("expected owner 42, got %d", lst.lastOwner)
	}
}

func TestGetListingIncludesReviews(t *testing.T) {
	lst := &stubListingService{single: store.Listing{ID: "abc", Title: "Cabin"}}
	revs := &stubReviewService{reviews: []store.Review{{ID: 1, Rating: 5, Comment: "Great"}}}
	handler := newTestServer(nil, lst, revs)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/abc", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp listingDetailResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Listing.ID != "abc" || len(resp.Reviews) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetListingNotFound(t *testing.T) {
	lst := &stubListingService{singleErr: store.ErrListingNotFound}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/ghost", nil, "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestUpdateListingForbiddenForNonOwner(t *testing.T) {
	lst := &stubListingService{updateErr: store.ErrNotOwner}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodPut, "/api/v1/listings/abc",
		listingRequest{Title: "Cabin", Location: "Manali", Country: "India", Category: "Mountains"}, "token")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestDeleteListing(t *testing.T) {
	lst := &stubListingService{}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodDelete, "/api/v1/listings/abc", nil, "token")

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if len(lst.deleted) != 1 || lst.deleted[0] != "abc" {
		t.Fatalf("unexpected deletes: %v", lst.deleted)
	}
}

func TestSearchBlankQueryRedirects(t *testing.T) {
	lst := &stubListingService{searchOK: false}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/search?q=", nil, "")

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/listings" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestSearchReturnsResults(t *testing.T) {
	lst := &stubListingService{
		searchOK:       true,
		searchResponse: []store.Listing{{ID: "abc"}},
	}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/search?q=cabin+under+500", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if lst.lastQuery != "cabin under 500" {
		t.Fatalf("unexpected query %q", lst.lastQuery)
	}
	var resp listingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Listings) != 1 {
		t.Fatalf("unexpected listings: %+v", resp.Listings)
	}
}

func TestFilterPassesParams(t *testing.T) {
	lst := &stubListingService{filterResponse: []store.Listing{{ID: "abc"}}}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet,
		"/api/v1/filter?category=Mountains&minPrice=100&maxPrice=900&pets=true", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	want := search.Params{Category: "Mountains", MinPrice: "100", MaxPrice: "900", Pets: "true"}
	if lst.lastParams != want {
		t.Fatalf("unexpected params: %+v", lst.lastParams)
	}
}

func TestFilterFallsBackToFullFeedOnError(t *testing.T) {
	lst := &stubListingService{
		filterErr:    errors.New("boom"),
		listResponse: []store.Listing{{ID: "a"}, {ID: "b"}},
	}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/filter?category=Boats", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp listingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Listings) != 2 || resp.Notice == "" {
		t.Fatalf("expected full feed with notice, got %+v", resp)
	}
}

func TestNearestListing(t *testing.T) {
	lst := &stubListingService{
		nearest: listings.Nearest{Listing: store.Listing{ID: "abc"}, DistanceKm: 3.5},
	}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/nearest?lat=12.9&lon=77.6", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if lst.lastPoint != (geo.Point{Lat: 12.9, Lon: 77.6}) {
		t.Fatalf("unexpected point: %+v", lst.lastPoint)
	}
	var resp nearestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Listing.ID != "abc" || resp.DistanceKm != 3.5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNearestListingMissingCoordinates(t *testing.T) {
	handler := newTestServer(nil, nil, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/nearest?lat=abc", nil, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestNearestListingNoneLocated(t *testing.T) {
	lst := &stubListingService{nearestErr: listings.ErrNoListingsNearby}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/nearest?lat=1&lon=1", nil, "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListingMapHighlightsCurrent(t *testing.T) {
	lst := &stubListingService{
		single: store.Listing{ID: "b"},
		listResponse: []store.Listing{
			{ID: "a", Title: "First", Geometry: store.NewPoint(77.0, 12.0)},
			{ID: "b", Title: "Second", Geometry: store.NewPoint(72.8, 19.0)},
			{ID: "c", Title: "Unlocated"},
		},
	}
	handler := newTestServer(nil, lst, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/listings/b/map", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp mapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Markers) != 2 {
		t.Fatalf("unlocated listings must not produce markers: %+v", resp.Markers)
	}
	if !resp.Markers[1].Current || resp.Markers[0].Current {
		t.Fatalf("expected only the requested listing highlighted: %+v", resp.Markers)
	}
	if resp.Center != (geo.Point{Lat: 19.0, Lon: 72.8}) {
		t.Fatalf("expected center on the current listing, got %+v", resp.Center)
	}
}

func TestCreateReview(t *testing.T) {
	revs := &stubReviewService{}
	handler := newTestServer(nil, nil, revs)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/listings/abc/reviews",
		reviewRequest{Rating: 5, Comment: "Great"}, "token")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if revs.added.ListingID != "abc" || revs.added.Rating != 5 {
		t.Fatalf("unexpected review: %+v", revs.added)
	}
}

func TestDeleteReviewForbiddenForNonAuthor(t *testing.T) {
	revs := &stubReviewService{deleteErr: store.ErrNotOwner}
	handler := newTestServer(nil, nil, revs)

	rr := doJSON(t, handler, http.MethodDelete, "/api/v1/reviews/5", nil, "token")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	users := &stubUserService{
		userID:  7,
		profile: store.User{ID: 7, Username: "alice", Name: "Alice"},
	}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/users/profile", nil, "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPut, "/api/v1/users/profile",
		profileUpdateRequest{Name: "New Name"}, "token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if users.lastUpdate.Name != "New Name" {
		t.Fatalf("unexpected update: %+v", users.lastUpdate)
	}
}

func TestProfileRejectsStaleToken(t *testing.T) {
	users := &stubUserService{resolveErr: store.ErrUnauthorized}
	handler := newTestServer(users, nil, nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/users/profile", nil, "stale")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
