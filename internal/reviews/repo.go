package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookreviews/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const reviewColumns = `id, book_title, author, rating, comments, user_id, user_name, created_at`

func (r *Repo) Insert(ctx context.Context, rv models.Review) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rv.ID, rv.BookTitle, rv.Author, rv.Rating, rv.Comments, rv.UserID, rv.UserName, rv.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// InsertMany writes every review in one transaction. Either all rows land or
// none do.
func (r *Repo) InsertMany(ctx context.Context, rvs []models.Review) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert reviews: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert reviews: %w", err)
	}
	defer stmt.Close()

	for _, rv := range rvs {
		if _, err := stmt.ExecContext(ctx, rv.ID, rv.BookTitle, rv.Author, rv.Rating, rv.Comments, rv.UserID, rv.UserName, rv.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert review %q: %w", rv.BookTitle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert reviews: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)

	var rv models.Review
	if err := scanReview(row, &rv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rv, nil
}

// ListAll returns every review, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]models.Review, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return collect(rows)
}

// ListByUser walks idx_reviews_user backwards.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.Review, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE user_id = ?
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by user: %w", err)
	}
	return collect(rows)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(s scanner, rv *models.Review) error {
	return s.Scan(&rv.ID, &rv.BookTitle, &rv.Author, &rv.Rating, &rv.Comments, &rv.UserID, &rv.UserName, &rv.CreatedAt)
}

func collect(rows *sql.Rows) ([]models.Review, error) {
	defer rows.Close()

	out := make([]models.Review, 0)
	for rows.Next() {
		var rv models.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
