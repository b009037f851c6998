package viewmodel

import (
	"time"

	"github.com/matheus3301/apurimac/internal/backend"
)

// UserProfile is the record stored in users/{userId}. Optional fields are nil
// when absent.
type UserProfile struct {
	UserID      string  `json:"userId"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
	ImageURL    *string `json:"imageUrl"`
}

// Summary snapshots the profile for embedding in chats and status posts.
func (p UserProfile) Summary() UserSummary {
	return UserSummary{
		UserID:      p.UserID,
		Name:        deref(p.Name),
		ImageURL:    deref(p.ImageURL),
		PhoneNumber: deref(p.PhoneNumber),
	}
}

// UserSummary is a copy of a user taken when a chat or status is created. It
// is never refreshed.
type UserSummary struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl"`
	PhoneNumber string `json:"phoneNumber"`
}

// ChatRecord pairs two users.
type ChatRecord struct {
	ChatID       string      `json:"chatId"`
	ParticipantA UserSummary `json:"participantA"`
	ParticipantB UserSummary `json:"participantB"`
}

// Other returns the participant that is not userID.
func (c ChatRecord) Other(userID string) UserSummary {
	if c.ParticipantA.UserID == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Delivery is the local state of a message written from this client.
type Delivery string

const (
	Sending Delivery = "sending"
	Sent    Delivery = "sent"
)

// Message is one entry of chats/{chatId}/messages. ID and Delivery are local
// and never stored; Delivery is empty for messages read from the store.
type Message struct {
	ID        string   `json:"-"`
	SenderID  string   `json:"senderId"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
	Delivery  Delivery `json:"-"`
}

// StatusPost is a media post shown to the author's contacts.
type StatusPost struct {
	Author    UserSummary `json:"author"`
	MediaURL  string      `json:"mediaUrl"`
	CreatedAt string      `json:"createdAt"`
}

func (s StatusPost) created() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	return t, err == nil
}

// AuthorStatuses groups the posts of one author.
type AuthorStatuses struct {
	Author UserSummary  `json:"author"`
	Posts  []StatusPost `json:"posts"`
}

// StatusView is the status mirror: the user's own posts, then the posts of
// everyone else grouped by author in first-seen order.
type StatusView struct {
	Own    []StatusPost     `json:"own"`
	Others []AuthorStatuses `json:"others"`
}

func decodeProfile(d backend.Document) (UserProfile, error) {
	var p UserProfile
	err := d.Decode(&p)
	return p, err
}

func decodeChat(d backend.Document) (ChatRecord, error) {
	var c ChatRecord
	err := d.Decode(&c)
	return c, err
}

func decodeMessage(d backend.Document) (Message, error) {
	var m Message
	if err := d.Decode(&m); err != nil {
		return Message{}, err
	}
	m.ID = d.ID
	return m, nil
}

func decodeStatus(d backend.Document) (StatusPost, error) {
	var s StatusPost
	err := d.Decode(&s)
	return s, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string { return &s }
