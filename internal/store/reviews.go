package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrReviewNotFound indicates a missing review.
	ErrReviewNotFound = errors.New("review not found")
	// ErrInvalidReview indicates a review failed validation.
	ErrInvalidReview = errors.New("invalid review")
)

// Review is a user's rating and comment on a listing.
type Review struct {
	ID         int64     `json:"id"`
	ListingID  string    `json:"listingId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

func validateReview(r Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidReview)
	}
	if strings.TrimSpace(r.Comment) == "" {
		return fmt.Errorf("%w: comment is required", ErrInvalidReview)
	}
	return nil
}

// CreateReview adds a review to a listing.
func (s *Store) CreateReview(ctx context.Context, r Review) (Review, error) {
	r.Comment = strings.TrimSpace(r.Comment)
	if err := validateReview(r); err != nil {
		return Review{}, err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (listing_id, author_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.ListingID, r.AuthorID, r.Rating, r.Comment).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Review{}, ErrListingNotFound
		}
		return Review{}, fmt.Errorf("insert review: %w", err)
	}

	return r, nil
}

// ListReviews returns a listing's reviews, newest first, with author
// names for rendering.
func (s *Store) ListReviews(ctx context.Context, listingID string) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.listing_id, r.author_id, u.username, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.listing_id = $1
		ORDER BY r.created_at DESC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ListingID, &r.AuthorID, &r.AuthorName, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// GetReview fetches one review.
func (s *Store) GetReview(ctx context.Context, id int64) (Review, error) {
	var r Review
	err := s.db.QueryRowContext(ctx, `
		SELECT id, listing_id, author_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1
	`, id).Scan(&r.ID, &r.ListingID, &r.AuthorID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, ErrReviewNotFound
		}
		return Review{}, fmt.Errorf("lookup review: %w", err)
	}
	return r, nil
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
