package api

import (
	"encoding/json"

	"github.com/matheus3301/apurimac/internal/viewmodel"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Requests and responses travel as google.protobuf.Struct; these are their
// JSON shapes.

type SignUpRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

type AddChatRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type ChatRequest struct {
	ChatID string `json:"chatId"`
}

type SendRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// UploadRequest carries the image inline, base64 encoded on the wire.
type UploadRequest struct {
	Data []byte `json:"data"`
}

type UploadResponse struct {
	Address string `json:"address"`
}

type NotificationResponse struct {
	Message string `json:"message"`
	Pending bool   `json:"pending"`
}

type Empty struct{}

// User is the signed-in identity.
type User struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Message is a mirrored message including its local delivery state.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Delivery  string `json:"delivery,omitempty"`
}

// State is a snapshot of the view-model.
type State struct {
	Phase        string                 `json:"phase"`
	User         *User                  `json:"user,omitempty"`
	Profile      *viewmodel.UserProfile `json:"profile,omitempty"`
	Chats        []viewmodel.ChatRecord `json:"chats"`
	ActiveChat   string                 `json:"activeChat,omitempty"`
	Messages     []Message              `json:"messages"`
	Statuses     viewmodel.StatusView   `json:"statuses"`
	Loading      map[string]bool        `json:"loading"`
	Notification string                 `json:"notification,omitempty"`
}

func stateFrom(s viewmodel.Snapshot) State {
	st := State{
		Phase:        string(s.Phase),
		Profile:      s.Profile,
		Chats:        s.Chats,
		ActiveChat:   s.ActiveChat,
		Messages:     make([]Message, 0, len(s.Messages)),
		Statuses:     s.Statuses,
		Loading:      make(map[string]bool, len(s.Loading)),
		Notification: s.Notification,
	}
	if s.User != nil {
		st.User = &User{UserID: s.User.UserID, Email: s.User.Email}
	}
	for _, m := range s.Messages {
		st.Messages = append(st.Messages, Message{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Delivery:  string(m.Delivery),
		})
	}
	for a, on := range s.Loading {
		st.Loading[string(a)] = on
	}
	return st
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
