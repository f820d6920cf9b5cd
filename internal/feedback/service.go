package feedback

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

type Store interface {
	Insert(ctx context.Context, f models.Feedback) error
	ListByReview(ctx context.Context, reviewID string) ([]models.Feedback, error)
	ListForReviewOwner(ctx context.Context, ownerID string) ([]models.ReviewFeedback, error)
}

// ReviewLookup resolves the review feedback is attached to.
type ReviewLookup interface {
	GetByID(ctx context.Context, id string) (*models.Review, error)
}

// Notifier tells a review's author that someone left feedback on it.
type Notifier interface {
	NotifyFeedback(ctx context.Context, ownerID string, f models.Feedback, reviewTitle string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyFeedback(context.Context, string, models.Feedback, string) {}

type CreateInput struct {
	ReviewID string              `json:"reviewId" validate:"required,max=64"`
	Message  string              `json:"message" validate:"max=5000"`
	Type     models.FeedbackType `json:"type"`
}

type Service struct {
	store    Store
	reviews  ReviewLookup
	events   synchub.Publisher
	notifier Notifier
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store Store, reviews ReviewLookup, events synchub.Publisher, notifier Notifier, logger *slog.Logger) *Service {
	if events == nil {
		events = synchub.NopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		reviews:  reviews,
		events:   events,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Service) GetByReview(ctx context.Context, reviewID string) ([]models.Feedback, error) {
	items, err := s.store.ListByReview(ctx, strings.TrimSpace(reviewID))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

// GetMyReviewsFeedback returns feedback on every review the caller wrote,
// decorated with the review title, newest first.
func (s *Service) GetMyReviewsFeedback(ctx context.Context, caller *auth.Caller) ([]models.ReviewFeedback, error) {
	if caller == nil {
		return nil, apperrors.Unauthenticated("Not authenticated")
	}
	items, err := s.store.ListForReviewOwner(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, caller *auth.Caller, in CreateInput) (string, error) {
	if caller == nil {
		return "", apperrors.Unauthenticated("Not authenticated")
	}
	in.ReviewID = strings.TrimSpace(in.ReviewID)
	if !in.Type.Valid() {
		return "", apperrors.Validation("Type must be comment or edit_suggestion")
	}
	if err := validator.Validate(in); err != nil {
		return "", apperrors.Validation(validator.Message(err))
	}

	review, err := s.reviews.GetByID(ctx, in.ReviewID)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if review == nil {
		return "", apperrors.NotFound("review", in.ReviewID)
	}

	f := models.Feedback{
		ID:        s.newID(),
		ReviewID:  review.ID,
		UserID:    caller.ID,
		UserName:  caller.DisplayName(),
		Message:   in.Message,
		Type:      in.Type,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return "", apperrors.Internal(err)
	}

	metrics.FeedbackCreated.WithLabelValues(string(f.Type)).Inc()
	s.events.Publish(synchub.FeedbackCreated(f, review.UserID))
	if review.UserID != caller.ID {
		s.notifier.NotifyFeedback(ctx, review.UserID, f, review.BookTitle)
	}
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "feedback created",
		slog.String("feedback_id", f.ID),
		slog.String("review_id", f.ReviewID),
		slog.String("type", string(f.Type)),
	)
	return f.ID, nil
}
