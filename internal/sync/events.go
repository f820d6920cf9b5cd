package sync

import (
	"sort"
	"strings"
	"time"

	"bookreviews/pkg/models"
)

const (
	EventReviewCreated   = "review.created"
	EventFeedbackCreated = "feedback.created"
)

// TopicReviews covers the all-reviews listing.
const TopicReviews = "reviews"

func UserReviewsTopic(userID string) string {
	return "reviews:user:" + userID
}

func ReviewFeedbackTopic(reviewID string) string {
	return "feedback:review:" + reviewID
}

// OwnerFeedbackTopic covers feedback left on any review written by ownerID.
func OwnerFeedbackTopic(ownerID string) string {
	return "feedback:owner:" + ownerID
}

// Event is one change notification, written to subscribers as a JSON line.
// Topics lists every live query whose result the change affects.
type Event struct {
	Type     string           `json:"type"`
	Topics   []string         `json:"topics"`
	Review   *models.Review   `json:"review,omitempty"`
	Feedback *models.Feedback `json:"feedback,omitempty"`
	At       time.Time        `json:"at"`
}

func ReviewCreated(r models.Review) Event {
	return Event{
		Type:   EventReviewCreated,
		Topics: []string{TopicReviews, UserReviewsTopic(r.UserID)},
		Review: &r,
		At:     r.CreatedAt,
	}
}

func FeedbackCreated(f models.Feedback, reviewOwnerID string) Event {
	topics := []string{ReviewFeedbackTopic(f.ReviewID)}
	if reviewOwnerID != "" {
		topics = append(topics, OwnerFeedbackTopic(reviewOwnerID))
	}
	return Event{
		Type:     EventFeedbackCreated,
		Topics:   topics,
		Feedback: &f,
		At:       f.CreatedAt,
	}
}

// Publisher receives change events after the write that caused them has
// committed. Implementations must not block the caller.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// SubscribeMessage is what a client sends to narrow its feed.
type SubscribeMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

const SubscribeMessageType = "subscribe"

// Filter is a subscriber's topic set. An empty filter matches every event.
type Filter map[string]struct{}

func NewFilter(topics ...string) Filter {
	f := make(Filter, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			f[t] = struct{}{}
		}
	}
	return f
}

func (f Filter) Match(ev Event) bool {
	if len(f) == 0 {
		return true
	}
	for _, t := range ev.Topics {
		if _, ok := f[t]; ok {
			return true
		}
	}
	return false
}

func (f Filter) Topics() []string {
	out := make([]string, 0, len(f))
	for t := range f {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
