package room

import "time"

// Sender is the transport half of a session as the room sees it: an ordered,
// fire-and-forget byte sink. The websocket layer implements it with a
// buffered write pump; tests implement it with a slice.
type Sender interface {
	Send(data []byte) error
	Close() error
}

const (
	chatMaxLen     = 500
	chatRateLimit  = 10
	chatRateWindow = time.Minute
)

// Session binds one connection to one player identity inside a room. It is
// created on attach, destroyed on detach, and only ever touched from the
// room goroutine.
type Session struct {
	ID       string
	Username string

	conn          Sender
	joinedAt      time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
	chatTimes     []time.Time
}

// allowChat applies the sliding-window rate limit and records the message
// time when it is admitted.
func (s *Session) allowChat(now time.Time) bool {
	cutoff := now.Add(-chatRateWindow)
	kept := s.chatTimes[:0]
	for _, ts := range s.chatTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.chatTimes = kept
	if len(s.chatTimes) >= chatRateLimit {
		return false
	}
	s.chatTimes = append(s.chatTimes, now)
	return true
}
