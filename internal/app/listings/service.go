// Package listings coordinates listing workflows: persistence, geocoding
// of location text, and live location broadcasts.
package listings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"restaura/internal/events"
	"restaura/internal/geo"
	"restaura/internal/geocode"
	"restaura/internal/search"
	"restaura/internal/store"
)

// ErrLocationNotFound indicates the geocoder had no match for the
// listing's location text. Creation aborts without persisting.
var ErrLocationNotFound = errors.New("location not found")

// ErrNoListingsNearby indicates no listing with a coordinate exists.
var ErrNoListingsNearby = errors.New("no listings nearby")

// Store captures the persistence needs for listing workflows.
type Store interface {
	CreateListing(ctx context.Context, l store.Listing) (store.Listing, error)
	GetListing(ctx context.Context, id string) (store.Listing, error)
	ListListings(ctx context.Context) ([]store.Listing, error)
	ListListingsByOwner(ctx context.Context, ownerID int64) ([]store.Listing, error)
	FindListings(ctx context.Context, f search.Filter) ([]store.Listing, error)
	UpdateListing(ctx context.Context, l store.Listing) (store.Listing, error)
	UpdateListingGeometry(ctx context.Context, id string, lon, lat float64) error
	DeleteListing(ctx context.Context, id string) error
}

// Geocoder resolves location text to a coordinate. A (nil, nil) return
// means the address was not found.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (*geocode.Result, error)
}

// Publisher fans location events out to live map subscribers.
type Publisher interface {
	Publish(topic string, eventType events.Type, data any)
}

// Nearest is a nearest-listing answer for a user coordinate.
type Nearest struct {
	Listing    store.Listing `json:"listing"`
	DistanceKm float64       `json:"distanceKm"`
}

// Service coordinates listing operations.
type Service interface {
	Create(ctx context.Context, ownerID int64, l store.Listing) (store.Listing, error)
	Get(ctx context.Context, id string) (store.Listing, error)
	List(ctx context.Context) ([]store.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]store.Listing, error)
	Search(ctx context.Context, query string) ([]store.Listing, bool, error)
	Filter(ctx context.Context, p search.Params) ([]store.Listing, error)
	Update(ctx context.Context, actorID int64, l store.Listing) (store.Listing, error)
	Delete(ctx context.Context, actorID int64, id string) error
	NearestTo(ctx context.Context, user geo.Point) (Nearest, error)
}

type service struct {
	store    Store
	geocoder Geocoder
	events   Publisher
	logger   *zerolog.Logger
}

// New constructs a Service backed by the provided collaborators.
func New(store Store, geocoder Geocoder, publisher Publisher, logger *zerolog.Logger) Service {
	return &service{store: store, geocoder: geocoder, events: publisher, logger: logger}
}

// Create geocodes the listing's location and persists it. A failed or
// empty geocode aborts the creation; nothing is stored.
func (s *service) Create(ctx context.Context, ownerID int64, l store.Listing) (store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return store.Listing{}, err
	}

	result, err := s.geocoder.Lookup(ctx, l.Location)
	if err != nil {
		return store.Listing{}, err
	}
	if result == nil {
		return store.Listing{}, ErrLocationNotFound
	}

	l.OwnerID = ownerID
	l.Geometry = store.NewPoint(result.Lon, result.Lat)
	return s.store.CreateListing(ctx, l)
}

func (s *service) Get(ctx context.Context, id string) (store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return store.Listing{}, err
	}
	return s.store.GetListing(ctx, id)
}

func (s *service) List(ctx context.Context) ([]store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListListings(ctx)
}

func (s *service) ListByOwner(ctx context.Context, ownerID int64) ([]store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListListingsByOwner(ctx, ownerID)
}

// Search runs a free-text query. The boolean reports whether the query
// produced any constraints; a blank query returns (nil, false, nil) and
// the caller decides what to show instead.
func (s *service) Search(ctx context.Context, query string) ([]store.Listing, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f, ok := search.ParseQuery(query)
	if !ok {
		return nil, false, nil
	}
	listings, err := s.store.FindListings(ctx, f)
	if err != nil {
		return nil, true, err
	}
	return listings, true, nil
}

func (s *service) Filter(ctx context.Context, p search.Params) ([]store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.FindListings(ctx, search.FromParams(p))
}

// Update rewrites a listing's fields. Only the owner may edit. The
// location is re-geocoded only when its text actually changed; if that
// lookup fails or finds nothing, the previous coordinate stays in place
// and the edit still succeeds.
func (s *service) Update(ctx context.Context, actorID int64, l store.Listing) (store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return store.Listing{}, err
	}

	prior, err := s.store.GetListing(ctx, l.ID)
	if err != nil {
		return store.Listing{}, err
	}
	if prior.OwnerID != actorID {
		return store.Listing{}, store.ErrNotOwner
	}

	l.OwnerID = prior.OwnerID
	if l.Image.URL == "" {
		l.Image = prior.Image
	}

	updated, err := s.store.UpdateListing(ctx, l)
	if err != nil {
		return store.Listing{}, err
	}

	if l.Location == prior.Location {
		return updated, nil
	}

	result, err := s.geocoder.Lookup(ctx, l.Location)
	if err != nil || result == nil {
		if err != nil && s.logger != nil {
			s.logger.Warn().Err(err).Str("listing_id", l.ID).Msg("re-geocode failed, keeping previous coordinate")
		}
		return updated, nil
	}

	if err := s.store.UpdateListingGeometry(ctx, l.ID, result.Lon, result.Lat); err != nil {
		return store.Listing{}, err
	}
	updated.Geometry = store.NewPoint(result.Lon, result.Lat)

	if s.events != nil {
		s.events.Publish(updated.ID, events.ListingLocationUpdated, events.LocationUpdate{
			ID:          updated.ID,
			Title:       updated.Title,
			Location:    updated.Location,
			Coordinates: []float64{result.Lon, result.Lat},
		})
	}

	return updated, nil
}

// Delete removes a listing and its reviews. Only the owner may delete.
func (s *service) Delete(ctx context.Context, actorID int64, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prior, err := s.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if prior.OwnerID != actorID {
		return store.ErrNotOwner
	}

	return s.store.DeleteListing(ctx, id)
}

// NearestTo finds the listing closest to the user's coordinate. Only
// listings that hold a geocoded coordinate participate; ties keep the
// earlier listing in feed order.
func (s *service) NearestTo(ctx context.Context, user geo.Point) (Nearest, error) {
	if err := ctx.Err(); err != nil {
		return Nearest{}, err
	}

	listings, err := s.store.ListListings(ctx)
	if err != nil {
		return Nearest{}, err
	}

	var (
		located []store.Listing
		points  []geo.Point
	)
	for _, l := range listings {
		if l.Geometry == nil {
			continue
		}
		located = append(located, l)
		points = append(points, l.Geometry.Point())
	}

	idx, dist := geo.Nearest(user, points)
	if idx < 0 {
		return Nearest{}, ErrNoListingsNearby
	}
	return Nearest{Listing: located[idx], DistanceKm: dist}, nil
}
