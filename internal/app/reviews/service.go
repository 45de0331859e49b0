package reviews

import (
	"context"

	"restaura/internal/store"
)

// Store captures the persistence needs for review workflows.
type Store interface {
	CreateReview(ctx context.Context, r store.Review) (store.Review, error)
	ListReviews(ctx context.Context, listingID string) ([]store.Review, error)
	GetReview(ctx context.Context, id int64) (store.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

// Service coordinates review operations. Only the author may delete
// their review.
type Service interface {
	Add(ctx context.Context, authorID int64, listingID string, rating int, comment string) (store.Review, error)
	List(ctx context.Context, listingID string) ([]store.Review, error)
	Delete(ctx context.Context, actorID, reviewID int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Add(ctx context.Context, authorID int64, listingID string, rating int, comment string) (store.Review, error) {
	if err := ctx.Err(); err != nil {
		return store.Review{}, err
	}
	return s.store.CreateReview(ctx, store.Review{
		ListingID: listingID,
		AuthorID:  authorID,
		Rating:    rating,
		Comment:   comment,
	})
}

func (s *service) List(ctx context.Context, listingID string) ([]store.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListReviews(ctx, listingID)
}

func (s *service) Delete(ctx context.Context, actorID, reviewID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.AuthorID != actorID {
		return store.ErrNotOwner
	}
	return s.store.DeleteReview(ctx, reviewID)
}
