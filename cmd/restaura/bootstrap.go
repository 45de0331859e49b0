package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaura/internal/store"
)

func bootstrapDemoData(ctx context.Context, db *sql.DB, dataStore *store.Store) error {
	if err := ensureDemoUser(ctx, dataStore); err != nil {
		return err
	}
	if err := ensureDemoListings(ctx, db, dataStore); err != nil {
		return err
	}
	return nil
}

func ensureDemoUser(ctx context.Context, dataStore *store.Store) error {
	if _, err := dataStore.CreateUser(ctx, "demo", "demo@restaura.example", "demo123"); err != nil && !errors.Is(err, store.ErrUserExists) {
		return fmt.Errorf("bootstrap demo user: %w", err)
	}
	return nil
}

func ensureDemoListings(ctx context.Context, db *sql.DB, dataStore *store.Store) error {
	const username = "demo"

	listingsTableExists, err := tableExists(ctx, db, "listings")
	if err != nil {
		return fmt.Errorf("check listings table: %w", err)
	}
	if !listingsTableExists {
		return nil
	}

	var userID int64
	if err := db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE username = $1
	`, username).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lookup demo user: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM listings
		WHERE owner_id = $1
	`, userID).Scan(&count); err != nil {
		return fmt.Errorf("count demo listings: %w", err)
	}
	if count > 0 {
		return nil
	}

	// Coordinates are pre-resolved so the seed never calls the geocoder.
	type seedListing struct {
		Title          string
		Description    string
		Location       string
		Country        string
		Category       string
		Price          int
		PetsAllowed    bool
		SmokingAllowed bool
		Lon, Lat       float64
	}

	seeds := []seedListing{
		{
			Title:       "Hilltop Cabin with Valley Views",
			Description: "A quiet wooden cabin overlooking the Beas valley, ten minutes from Old Manali.",
			Location:    "Manali, Himachal Pradesh",
			Country:     "India",
			Category:    "Mountains",
			Price:       1800,
			PetsAllowed: true,
			Lon:         77.1892, Lat: 32.2396,
		},
		{
			Title:       "Riverside Camp by the Ganges",
			Description: "Tents on a private beach with bonfire evenings and rafting next door.",
			Location:    "Rishikesh, Uttarakhand",
			Country:     "India",
			Category:    "Camping",
			Price:       900,
			Lon:         78.2676, Lat: 30.0869,
		},
		{
			Title:       "Heritage Room in the Pink City",
			Description: "A frescoed room in a restored haveli, walking distance from Hawa Mahal.",
			Location:    "Jaipur, Rajasthan",
			Country:     "India",
			Category:    "Iconic Cities",
			Price:       2400,
			Lon:         75.7873, Lat: 26.9124,
		},
		{
			Title:          "Houseboat on Dal Lake",
			Description:    "Carved cedar houseboat with shikara pickup and home-cooked wazwan.",
			Location:       "Srinagar, Jammu and Kashmir",
			Country:        "India",
			Category:       "Boats",
			Price:          3200,
			SmokingAllowed: true,
			Lon:            74.7973, Lat: 34.0837,
		},
		{
			Title:       "Desert Dome under the Stars",
			Description: "Geodesic dome on the edge of the Thar, camel safari included.",
			Location:    "Jaisalmer, Rajasthan",
			Country:     "India",
			Category:    "Desert",
			Price:       2100,
			Lon:         70.9083, Lat: 26.9157,
		},
	}

	for _, seed := range seeds {
		if _, err := dataStore.CreateListing(ctx, store.Listing{
			OwnerID:        userID,
			Title:          seed.Title,
			Description:    seed.Description,
			Location:       seed.Location,
			Country:        seed.Country,
			Category:       seed.Category,
			Price:          seed.Price,
			PetsAllowed:    seed.PetsAllowed,
			SmokingAllowed: seed.SmokingAllowed,
			Geometry:       store.NewPoint(seed.Lon, seed.Lat),
		}); err != nil {
			return fmt.Errorf("insert demo listing %q: %w", seed.Title, err)
		}
	}

	return nil
}

type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func tableExists(ctx context.Context, q queryRower, table string) (bool, error) {
	var name sql.NullString
	if err := q.QueryRowContext(ctx, `SELECT to_regclass($1)`, table).Scan(&name); err != nil {
		return false, err
	}
	return name.Valid, nil
}
