package httpapi

import (
	"errors"
	"net/http"

	"restaura/internal/app/listings"
	"restaura/internal/store"
)

// statusForError maps service sentinels to HTTP statuses. Anything
// unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrListingNotFound),
		errors.Is(err, store.ErrReviewNotFound),
		errors.Is(err, listings.ErrNoListingsNearby):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidListing),
		errors.Is(err, store.ErrInvalidReview):
		return http.StatusBadRequest
	case errors.Is(err, listings.ErrLocationNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
