package feedback

import (
	"context"
	"database/sql"
	"fmt"

	"bookreviews/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Insert(ctx context.Context, f models.Feedback) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO feedback (id, review_id, user_id, user_name, message, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.ReviewID, f.UserID, f.UserName, f.Message, string(f.Type), f.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListByReview returns the review's feedback newest first.
func (r *Repo) ListByReview(ctx context.Context, reviewID string) ([]models.Feedback, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, review_id, user_id, user_name, message, type, created_at
		FROM feedback
		WHERE review_id = ?
		ORDER BY seq DESC
	`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list feedback by review: %w", err)
	}
	defer rows.Close()

	out := make([]models.Feedback, 0)
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.ReviewID, &f.UserID, &f.UserName, &f.Message, &f.Type, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListForReviewOwner returns feedback left on any review written by ownerID,
// each row carrying its review's title, newest feedback first.
func (r *Repo) ListForReviewOwner(ctx context.Context, ownerID string) ([]models.ReviewFeedback, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT f.id, f.review_id, f.user_id, f.user_name, f.message, f.type, f.created_at, r.book_title
		FROM reviews r
		JOIN feedback f ON f.review_id = r.id
		WHERE r.user_id = ?
		ORDER BY f.seq DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for owner: %w", err)
	}
	defer rows.Close()

	out := make([]models.ReviewFeedback, 0)
	for rows.Next() {
		var rf models.ReviewFeedback
		if err := rows.Scan(&rf.ID, &rf.ReviewID, &rf.UserID, &rf.UserName, &rf.Message, &rf.Type, &rf.CreatedAt, &rf.ReviewTitle); err != nil {
			return nil, fmt.Errorf("scan owner feedback row: %w", err)
		}
		out = append(out, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
