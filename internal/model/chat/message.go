package chat

// Sender identifies who a message is attributed to in the thread.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single immutable entry of the conversation thread.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// Reply is the postMessage payload returned by the chat backend.
type Reply struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SenderForRole maps a backend role onto a thread sender. Only "user" is
// attributed to the user; every other role renders as the bot.
func SenderForRole(role string) Sender {
	if role == "user" {
		return SenderUser
	}
	return SenderBot
}

// Message converts the reply into a thread entry.
func (r Reply) Message() Message {
	return Message{Text: r.Content, Sender: SenderForRole(r.Role)}
}
