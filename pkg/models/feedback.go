package models

import "time"

type FeedbackType string

const (
	FeedbackComment        FeedbackType = "comment"
	FeedbackEditSuggestion FeedbackType = "edit_suggestion"
)

func (t FeedbackType) Valid() bool {
	return t == FeedbackComment || t == FeedbackEditSuggestion
}

// Feedback is a comment or edit suggestion attached to a review.
type Feedback struct {
	ID        string       `json:"id"`
	ReviewID  string       `json:"reviewId"`
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	Message   string       `json:"message"`
	Type      FeedbackType `json:"type"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ReviewFeedback is feedback decorated with the title of the review it was
// left on.
type ReviewFeedback struct {
	Feedback
	ReviewTitle string `json:"reviewTitle"`
}
