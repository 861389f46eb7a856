package domain

// Message is one direct message between two users. Exactly one of Text or
// MediaURL carries the payload, selected by MessageType.
type Message struct {
	ID          MessageID
	FromUser    UserID
	ToUser      UserID
	Text        string
	MediaURL    string
	MessageType MessageType
	Seen        bool
	CreatedAt   Timestamp
}

// MessageDraft is a message before the store assigns its id and timestamp.
type MessageDraft struct {
	FromUser    UserID
	ToUser      UserID
	Text        string
	MediaURL    string
	MessageType MessageType
}

// Counterparty returns the other participant of the message relative to
// userID, or "" when the record does not resolve to a pair involving userID.
func (m *Message) Counterparty(userID UserID) UserID {
	if m.FromUser == userID && m.ToUser != userID && m.ToUser != "" {
		return m.ToUser
	}
	if m.ToUser == userID && m.FromUser != userID && m.FromUser != "" {
		return m.FromUser
	}
	return ""
}

// Profile is the denormalized display snapshot of a user, attached to
// outgoing message views so clients can render a sender without a second
// lookup.
type Profile struct {
	ID             UserID
	Username       string
	FullName       string
	ProfilePicture string
}

// Turn is one entry of an AI exchange history.
type Turn struct {
	Role Role
	Text string
}
