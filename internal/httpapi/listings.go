package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"restaura/internal/geo"
	"restaura/internal/mapview"
	"restaura/internal/search"
	"restaura/internal/store"
)

// defaultMapCenter is the map's initial center when the current listing
// has no coordinate.
var defaultMapCenter = geo.Point{Lat: 20.5937, Lon: 78.9629}

type listingRequest struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Location       string      `json:"location"`
	Country        string      `json:"country"`
	Category       string      `json:"category"`
	Price          int         `json:"price"`
	PetsAllowed    bool        `json:"petsAllowed"`
	SmokingAllowed bool        `json:"smokingAllowed"`
	Image          store.Image `json:"image"`
}

func (req listingRequest) toListing() store.Listing {
	return store.Listing{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Country:        req.Country,
		Category:       req.Category,
		Price:          req.Price,
		PetsAllowed:    req.PetsAllowed,
		SmokingAllowed: req.SmokingAllowed,
		Image:          req.Image,
	}
}

type listingsResponse struct {
	Listings []store.Listing `json:"listings"`
	Notice   string          `json:"notice,omitempty"`
}

type listingDetailResponse struct {
	Listing store.Listing  `json:"listing"`
	Reviews []store.Review `json:"reviews"`
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	all, err := s.listings.List(r.Context())
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: all})
}

func (s *Server) handleMyListings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authedUser(w, r)
	if !ok {
		return
	}

	mine, err := s.listings.ListByOwner(r.Context(), userID)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: mine})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authedUser(w, r)
	if !ok {
		return
	}

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	created, err := s.listings.Create(r.Context(), userID, req.toListing())
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	listing, err := s.listings.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	revs, err := s.reviews.List(r.Context(), id)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, listingDetailResponse{Listing: listing, Reviews: revs})
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authedUser(w, r)
	if !ok {
		return
	}

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	l := req.toListing()
	l.ID = r.PathValue("id")

	updated, err := s.listings.Update(r.Context(), userID, l)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authedUser(w, r)
	if !ok {
		return
	}

	if err := s.listings.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type mapResponse struct {
	Center  geo.Point        `json:"center"`
	Markers []mapview.Marker `json:"markers"`
}

// handleListingMap returns the initial map state for a listing page: one
// marker per located listing, the requested listing highlighted and
// centered. Later moves arrive over the websocket.
func (s *Server) handleListingMap(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.listings.Get(r.Context(), id); err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	all, err := s.listings.List(r.Context())
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	view := mapview.New(id, defaultMapCenter)
	for _, l := range all {
		if l.Geometry == nil {
			continue
		}
		view.Add(mapview.Marker{
			ID:          l.ID,
			Title:       l.Title,
			Location:    l.Location,
			Coordinates: l.Geometry.Coordinates,
		})
	}

	writeJSON(w, http.StatusOK, mapResponse{Center: view.Center(), Markers: view.Markers()})
}

type nearestResponse struct {
	Listing    store.Listing `json:"listing"`
	DistanceKm float64       `json:"distanceKm"`
}

func (s *Server) handleNearestListing(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lat and lon query parameters are required"})
		return
	}

	nearest, err := s.listings.NearestTo(r.Context(), geo.Point{Lat: lat, Lon: lon})
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, nearestResponse{Listing: nearest.Listing, DistanceKm: nearest.DistanceKm})
}

// handleSearch runs a free-text query. A blank query redirects to the
// unfiltered listing feed instead of searching.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, ok, err := s.listings.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	if !ok {
		http.Redirect(w, r, "/api/v1/listings", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, listingsResponse{Listings: results})
}

// handleFilter applies the structured filter form. When the filtered
// lookup fails, the full feed is returned with a notice rather than an
// error page.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := search.Params{
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
		MinPrice: q.Get("minPrice"),
		MaxPrice: q.Get("maxPrice"),
		Pets:     q.Get("pets"),
		Smoking:  q.Get("smoking"),
	}

	filtered, err := s.listings.Filter(r.Context(), params)
	if err != nil {
		all, listErr := s.listings.List(r.Context())
		if listErr != nil {
			writeJSON(w, statusForError(listErr), errorResponse{Error: listErr.Error()})
			return
		}
		writeJSON(w, http.StatusOK, listingsResponse{
			Listings: all,
			Notice:   "filter could not be applied, showing all listings",
		})
		return
	}

	writeJSON(w, http.StatusOK, listingsResponse{Listings: filtered})
}
