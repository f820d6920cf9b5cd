package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's assessment of one book. Reviews are never updated
// after insert.
type Review struct {
	ID        string    `json:"id"`
	BookTitle string    `json:"bookTitle"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comments  string    `json:"comments"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
