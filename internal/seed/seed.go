package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookreviews/internal/auth"
	"bookreviews/pkg/models"
)

const (
	MsgAlreadySeeded = "Data already exists"
	MsgNoUsers       = "Please create a user account first"
)

type ReviewStore interface {
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, rvs []models.Review) error
}

type UserStore interface {
	First(ctx context.Context) (*auth.User, error)
}

type Result struct {
	Inserted int    `json:"inserted"`
	Message  string `json:"message"`
}

type Seeder struct {
	Reviews ReviewStore
	Users   UserStore
	Logger  *slog.Logger
}

func New(reviews ReviewStore, users UserStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{Reviews: reviews, Users: users, Logger: logger}
}

// Run inserts the sample reviews for the first registered user in a single
// transaction. It does nothing when any review already exists or there is no
// user yet.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	n, err := s.Reviews.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	if n > 0 {
		s.Logger.Info("data already seeded", slog.Int("reviews", n))
		return Result{Message: MsgAlreadySeeded}, nil
	}

	u, err := s.Users.First(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	if u == nil {
		s.Logger.Info("no users found, sign up first")
		return Result{Message: MsgNoUsers}, nil
	}

	name := models.DisplayName(u.Name, u.Email, models.SeedUserName)
	now := time.Now().UTC()
	batch := make([]models.Review, 0, len(samples))
	for i, sample := range samples {
		batch = append(batch, models.Review{
			ID:        uuid.NewString(),
			BookTitle: sample.BookTitle,
			Author:    sample.Author,
			Rating:    sample.Rating,
			Comments:  sample.Comments,
			UserID:    u.ID,
			UserName:  name,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := s.Reviews.InsertMany(ctx, batch); err != nil {
		return Result{}, fmt.Errorf("seed reviews: %w", err)
	}

	s.Logger.Info("seeded reviews", slog.Int("count", len(batch)), slog.String("user_id", u.ID))
	return Result{Inserted: len(batch), Message: fmt.Sprintf("Successfully seeded %d reviews", len(batch))}, nil
}

type sampleReview struct {
	BookTitle string
	Author    string
	Rating    int
	Comments  string
}

var samples = []sampleReview{
	{
		BookTitle: "The Midnight Library",
		Author:    "Matt Haig",
		Rating:    5,
		Comments:  "An absolutely captivating exploration of life's infinite possibilities. Haig masterfully weaves philosophy with storytelling, creating a narrative that's both thought-provoking and emotionally resonant. The concept of the midnight library is brilliant, and Nora's journey through different lives is deeply moving.",
	},
	{
		BookTitle: "Project Hail Mary",
		Author:    "Andy Weir",
		Rating:    5,
		Comments:  "Andy Weir has done it again! This book is a perfect blend of hard science fiction and humor. The protagonist's problem-solving approach is engaging, and the unexpected friendship that develops is heartwarming. Couldn't put it down!",
	},
	{
		BookTitle: "Atomic Habits",
		Author:    "James Clear",
		Rating:    4,
		Comments:  "A practical and insightful guide to building better habits. Clear's framework is easy to understand and implement. The 1% improvement philosophy is powerful. Some concepts felt repetitive, but overall an excellent resource for personal development.",
	},
	{
		BookTitle: "The Seven Husbands of Evelyn Hugo",
		Author:    "Taylor Jenkins Reid",
		Rating:    5,
		Comments:  "A stunning piece of historical fiction that explores love, identity, and sacrifice. Reid's character development is exceptional, and Evelyn Hugo is one of the most complex and fascinating protagonists I've encountered. The twists kept me guessing until the end.",
	},
	{
		BookTitle: "Thinking, Fast and Slow",
		Author:    "Daniel Kahneman",
		Rating:    4,
		Comments:  "A comprehensive look at how our minds work and the biases that affect our decision-making. Kahneman's research is fascinating, though the book can be dense at times. Essential reading for anyone interested in psychology and behavioral economics.",
	},
}
