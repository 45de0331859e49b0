package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaura/internal/geo"
	"restaura/internal/search"
)

var (
	// ErrListingNotFound indicates a missing listing on read/update/delete.
	ErrListingNotFound = errors.New("listing not found")
	// ErrInvalidListing indicates a listing failed validation.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrNotOwner indicates the acting user does not own the listing.
	ErrNotOwner = errors.New("not the listing owner")
)

// ListingCategories is the fixed category set a listing may carry.
var ListingCategories = []string{
	"Room",
	"Iconic Cities",
	"Mountains",
	"Castle",
	"Arctic",
	"Camping",
	"Farms",
	"Desert",
	"Domes",
	"Boats",
}

// DefaultImageURL is used for listings created without an image.
const DefaultImageURL = "/default-image.jpg"

// Geometry is a GeoJSON point, coordinates in [longitude, latitude]
// order. It is set only after a successful geocode.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a point geometry from a lon/lat pair.
func NewPoint(lon, lat float64) *Geometry {
	return &Geometry{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// Point converts the geometry to a geo.Point for distance math.
func (g *Geometry) Point() geo.Point {
	return geo.Point{Lat: g.Coordinates[1], Lon: g.Coordinates[0]}
}

// Image is a listing's picture. Filename is nil for the default image.
type Image struct {
	URL      string  `json:"url"`
	Filename *string `json:"filename"`
}

// Listing is a rentable property record.
type Listing struct {
	ID             string    `json:"id"`
	OwnerID        int64     `json:"ownerId"`
	OwnerUsername  string    `json:"ownerUsername,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Country        string    `json:"country"`
	Category       string    `json:"category"`
	Price          int       `json:"price"`
	PetsAllowed    bool      `json:"petsAllowed"`
	SmokingAllowed bool      `json:"smokingAllowed"`
	Image          Image     `json:"image"`
	Geometry       *Geometry `json:"geometry,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func validateListing(l Listing) error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	}
	if strings.TrimSpace(l.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidListing)
	}
	if strings.TrimSpace(l.Country) == "" {
		return fmt.Errorf("%w: country is required", ErrInvalidListing)
	}
	if l.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidListing)
	}
	valid := false
	for _, c := range ListingCategories {
		if l.Category == c {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidListing, l.Category)
	}
	return nil
}

const listingColumns = `
	l.id, l.owner_id, u.username, l.title, l.description, l.location, l.country,
	l.category, l.price, l.pets_allowed, l.smoking_allowed,
	l.image_url, l.image_filename, l.geom_lon, l.geom_lat,
	l.created_at, l.updated_at`

const selectListing = `
	SELECT` + listingColumns + `
	FROM listings l
	JOIN users u ON u.id = l.owner_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (Listing, error) {
	var (
		l        Listing
		filename sql.NullString
		lon, lat sql.NullFloat64
	)
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.OwnerUsername, &l.Title, &l.Description, &l.Location, &l.Country,
		&l.Category, &l.Price, &l.PetsAllowed, &l.SmokingAllowed,
		&l.Image.URL, &filename, &lon, &lat,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return Listing{}, err
	}
	if filename.Valid {
		l.Image.Filename = &filename.String
	}
	if lon.Valid && lat.Valid {
		l.Geometry = NewPoint(lon.Float64, lat.Float64)
	}
	return l, nil
}

// CreateListing persists a new listing and returns it with its assigned
// id. Geometry, when present, must already hold the geocoded coordinate.
func (s *Store) CreateListing(ctx context.Context, l Listing) (Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.Location = strings.TrimSpace(l.Location)
	l.Country = strings.TrimSpace(l.Country)

	if err := validateListing(l); err != nil {
		return Listing{}, err
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Image.URL == "" {
		l.Image.URL = DefaultImageURL
		l.Image.Filename = nil
	}

	var lon, lat any
	if l.Geometry != nil {
		lon = l.Geometry.Coordinates[0]
		lat = l.Geometry.Coordinates[1]
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO listings
			(id, owner_id, title, description, location, country, category,
			 price, pets_allowed, smoking_allowed, image_url, image_filename,
			 geom_lon, geom_lat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, l.ID, l.OwnerID, l.Title, l.Description, l.Location, l.Country, l.Category,
		l.Price, l.PetsAllowed, l.SmokingAllowed, l.Image.URL, l.Image.Filename,
		lon, lat).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Listing{}, fmt.Errorf("insert listing: %w", err)
	}

	return l, nil
}

// GetListing fetches one listing by id.
func (s *Store) GetListing(ctx context.Context, id string) (Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, selectListing+` WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Listing{}, ErrListingNotFound
		}
		return Listing{}, fmt.Errorf("lookup listing: %w", err)
	}
	return l, nil
}

// ListListings returns all listings, newest first.
func (s *Store) ListListings(ctx context.Context) ([]Listing, error) {
	return s.FindListings(ctx, search.Filter{})
}

// ListListingsByOwner returns every listing owned by the given user.
func (s *Store) ListListingsByOwner(ctx context.Context, ownerID int64) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx, selectListing+`
		WHERE l.owner_id = $1
		ORDER BY l.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select owner listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// FindListings evaluates a search filter. All present constraints are
// AND-ed; the keyword OR-group counts as one AND-ed term. An empty filter
// returns every listing.
func (s *Store) FindListings(ctx context.Context, f search.Filter) ([]Listing, error) {
	query := selectListing

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Keyword != "" {
		p := arg("%" + f.Keyword + "%")
		conds = append(conds, fmt.Sprintf(
			"(l.title ILIKE %[1]s OR l.description ILIKE %[1]s OR l.location ILIKE %[1]s OR l.country ILIKE %[1]s OR l.category ILIKE %[1]s)", p))
	}
	if f.Category != "" {
		conds = append(conds, "l.category = "+arg(f.Category))
	}
	for _, c := range f.Categories {
		conds = append(conds, "l.category ILIKE "+arg("%"+c+"%"))
	}
	if f.MinPrice != nil {
		conds = append(conds, "l.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "l.price <= "+arg(*f.MaxPrice))
	}
	if f.PetsAllowed {
		conds = append(conds, "l.pets_allowed = TRUE")
	}
	if f.SmokingAllowed {
		conds = append(conds, "l.smoking_allowed = TRUE")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY l.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]Listing, error) {
	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

// UpdateListing rewrites a listing's descriptive fields. Geometry is
// deliberately untouched here; a re-geocode goes through
// UpdateListingGeometry so a failed or skipped lookup can never disturb
// the stored coordinate.
func (s *Store) UpdateListing(ctx context.Context, l Listing) (Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.Location = strings.TrimSpace(l.Location)
	l.Country = strings.TrimSpace(l.Country)

	if err := validateListing(l); err != nil {
		return Listing{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET title = $2, description = $3, location = $4, country = $5,
		    category = $6, price = $7, pets_allowed = $8, smoking_allowed = $9,
		    image_url = $10, image_filename = $11, updated_at = now()
		WHERE id = $1
	`, l.ID, l.Title, l.Description, l.Location, l.Country,
		l.Category, l.Price, l.PetsAllowed, l.SmokingAllowed,
		l.Image.URL, l.Image.Filename)
	if err != nil {
		return Listing{}, fmt.Errorf("update listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Listing{}, ErrListingNotFound
	}

	return s.GetListing(ctx, l.ID)
}

// UpdateListingGeometry stores a freshly geocoded coordinate.
func (s *Store) UpdateListingGeometry(ctx context.Context, id string, lon, lat float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET geom_lon = $2, geom_lat = $3, updated_at = now()
		WHERE id = $1
	`, id, lon, lat)
	if err != nil {
		return fmt.Errorf("update listing geometry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// DeleteListing removes a listing and its reviews in one transaction.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE listing_id = $1
	`, id); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM listings
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return nil
}
