package messaging

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Scope is the conversation context that groups messages for fetch and cache
// purposes: a channel, or an unordered pair of direct-message participants.
type Scope struct {
	ChannelID uuid.UUID
	UserOne   uuid.UUID
	UserTwo   uuid.UUID
	direct    bool
}

// ChannelScope returns the scope of a channel conversation.
func ChannelScope(channelID uuid.UUID) Scope {
	return Scope{ChannelID: channelID}
}

// DirectScope returns the scope of a direct conversation. The pair is
// normalized so DirectScope(a, b) and DirectScope(b, a) are the same scope.
func DirectScope(a, b uuid.UUID) Scope {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Scope{UserOne: a, UserTwo: b, direct: true}
}

// IsDirect reports whether the scope is a direct-message pair.
func (s Scope) IsDirect() bool {
	return s.direct
}

// Key returns a stable string form used for cache keys and realtime rooms.
func (s Scope) Key() string {
	if s.direct {
		return fmt.Sprintf("direct:%s:%s", s.UserOne, s.UserTwo)
	}
	return fmt.Sprintf("channel:%s", s.ChannelID)
}
