package history

import (
	"fmt"
	"strings"
	"time"
)

// Sender tags who produced an exchange.
type Sender uint8

const (
	SenderUser Sender = iota + 1
	SenderAgent
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAgent:
		return "agent"
	default:
		return fmt.Sprintf("Sender(%d)", uint8(s))
	}
}

// ParseSender accepts "user" and "agent"; "ai" is what older widget builds
// stored for the assistant.
func ParseSender(s string) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return SenderUser, nil
	case "agent", "ai", "assistant":
		return SenderAgent, nil
	default:
		return 0, fmt.Errorf("unknown sender %q", s)
	}
}

func (s Sender) MarshalText() ([]byte, error) {
	if s != SenderUser && s != SenderAgent {
		return nil, fmt.Errorf("invalid sender %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Sender) UnmarshalText(b []byte) error {
	v, err := ParseSender(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Reactions is widget state; the selector never reads it.
type Reactions struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

type Reaction string

const (
	ReactionLiked    Reaction = "liked"
	ReactionDisliked Reaction = "disliked"
)

// Exchange is one turn of a conversation. FollowUps is only set on agent
// exchanges.
type Exchange struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	FollowUps []string  `json:"follow_ups,omitempty"`
	Reactions Reactions `json:"reactions"`
}

func (e Exchange) clone() Exchange {
	e.FollowUps = append([]string(nil), e.FollowUps...)
	return e
}

// Stats are the per-session counters shown in the widget's stats panel.
type Stats struct {
	TotalMessages int       `json:"total_messages"`
	UserMessages  int       `json:"user_messages"`
	AgentMessages int       `json:"agent_messages"`
	SessionStart  time.Time `json:"session_start"`
}

func (s *Stats) count(sender Sender) {
	s.TotalMessages++
	switch sender {
	case SenderUser:
		s.UserMessages++
	case SenderAgent:
		s.AgentMessages++
	}
}
