package line

// Webhook payload types for the subset of events the bot handles.

type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string    `json:"type"`
	ReplyToken string    `json:"replyToken"`
	Source     Source    `json:"source"`
	Message    *Message  `json:"message,omitempty"`
	Postback   *Postback `json:"postback,omitempty"`
}

type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// ScopeID returns the conversation identifier the shared ledger is keyed by:
// the group or room id for multi-person chats, the user id for 1:1 chats.
func (s Source) ScopeID() string {
	switch s.Type {
	case "user":
		return s.UserID
	case "group":
		return s.GroupID
	case "room":
		return s.RoomID
	}
	return ""
}

type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type Postback struct {
	Data string `json:"data"`
}
