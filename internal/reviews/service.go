package reviews

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookreviews/internal/auth"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/metrics"
	"bookreviews/pkg/models"
	"bookreviews/pkg/validator"
)

// Store is the persistence the review operations need.
type Store interface {
	Insert(ctx context.Context, rv models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListAll(ctx context.Context) ([]models.Review, error)
	ListByUser(ctx context.Context, userID string) ([]models.Review, error)
}

type CreateInput struct {
	BookTitle string `json:"bookTitle" validate:"max=300"`
	Author    string `json:"author" validate:"max=200"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments" validate:"max=5000"`
}

type Service struct {
	store  Store
	events synchub.Publisher
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store Store, events synchub.Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = synchub.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) ListAll(ctx context.Context) ([]models.Review, error) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Review, error) {
	items, err := s.store.ListByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *Service) MyReviews(ctx context.Context, caller *auth.Caller) ([]models.Review, error) {
	if caller == nil {
		return nil, apperrors.Unauthenticated("Not authenticated")
	}
	return s.ListByUser(ctx, caller.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Review, error) {
	rv, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if rv == nil {
		return nil, apperrors.NotFound("review", id)
	}
	return rv, nil
}

// Create checks the caller before the rating, and both before any write.
func (s *Service) Create(ctx context.Context, caller *auth.Caller, in CreateInput) (string, error) {
	if caller == nil {
		return "", apperrors.Unauthenticated("Not authenticated")
	}
	if !models.ValidRating(in.Rating) {
		return "", apperrors.Validation("Rating must be between 1 and 5")
	}
	if err := validator.Validate(in); err != nil {
		return "", apperrors.Validation(validator.Message(err))
	}

	rv := models.Review{
		ID:        s.newID(),
		BookTitle: in.BookTitle,
		Author:    in.Author,
		Rating:    in.Rating,
		Comments:  in.Comments,
		UserID:    caller.ID,
		UserName:  caller.DisplayName(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rv); err != nil {
		return "", apperrors.Internal(err)
	}

	metrics.ReviewsCreated.Inc()
	s.events.Publish(synchub.ReviewCreated(rv))
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "review created",
		slog.String("review_id", rv.ID),
		slog.Int("rating", rv.Rating),
	)
	return rv.ID, nil
}
