package model

import "fmt"

// ReviewKind selects which table a review targets.
type ReviewKind string

const (
	ReviewUser     ReviewKind = "user"
	ReviewResource ReviewKind = "resource"
	ReviewSpace    ReviewKind = "space"
)

func ParseReviewKind(s string) (ReviewKind, error) {
	switch ReviewKind(s) {
	case ReviewUser, ReviewResource, ReviewSpace:
		return ReviewKind(s), nil
	}
	return "", fmt.Errorf("unknown review type %q", s)
}

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is append-only feedback on a user, resource or space.  ItemName is
// the reviewed user's name or listing title; ReviewerName is set on reads.
type Review struct {
	ID           uint64     `json:"id" db:"review_id"`
	Kind         ReviewKind `json:"type" db:"kind"`
	TargetID     uint64     `json:"target_id" db:"target_id"`
	ItemName     string     `json:"item_name,omitempty" db:"item_name"`
	ReviewerID   uint64     `json:"reviewer_id" db:"reviewer_id"`
	ReviewerName string     `json:"reviewer_name,omitempty" db:"reviewer_name"`
	Rating       int        `json:"rating" db:"rating"`
	Comment      string     `json:"comment" db:"comment"`
	Timestamp    Timestamp  `json:"timestamp" db:"timestamp"`
}

// Message is one line of a conversation between two users.
type Message struct {
	ID         uint64    `json:"id" db:"message_id"`
	SenderID   uint64    `json:"sender_id" db:"sender_id"`
	ReceiverID uint64    `json:"receiver_id" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	Timestamp  Timestamp `json:"timestamp" db:"timestamp"`
}

// Conversation summarizes the exchange with one partner for the inbox.
type Conversation struct {
	PartnerID   uint64    `json:"user_id" db:"partner_id"`
	PartnerName string    `json:"name" db:"partner_name"`
	LastAt      Timestamp `json:"last_message_at" db:"last_at"`
}

// Notification is a recent action by another user on something the caller
// owns: a reservation of their listing or attendance of their event.
type Notification struct {
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	UserName  string    `json:"user_name" db:"user_name"`
	CreatedAt Timestamp `json:"created_at" db:"created_at"`
}

// UpcomingItem is an active or future reservation or an attended event.
// End is zero for events; Counterpart is the listing owner or organizer.
type UpcomingItem struct {
	Kind        string `json:"kind" db:"kind"`
	Title       string `json:"title" db:"title"`
	Start       Date   `json:"start_date" db:"start_date"`
	End         Date   `json:"end_date" db:"end_date"`
	Counterpart string `json:"with" db:"counterpart"`
}
