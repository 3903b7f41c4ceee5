package chat

import "time"

// Session captures a mounted conversation owned by one client.
type Session struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is an immutable copy of a conversation handed to render surfaces.
// Revision grows by one on every mutation.
type Snapshot struct {
	Messages     []Message `json:"messages"`
	PendingInput string    `json:"pendingInput"`
	Busy         bool      `json:"busy"`
	Revision     uint64    `json:"revision"`
}

// Last returns the most recent message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
