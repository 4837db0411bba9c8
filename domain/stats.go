package domain

// ChatStat counts relay attempts between the owner of a UserStats record
// and one correspondent. The two counters move independently: an entry may
// exist with only sent or only received populated.
type ChatStat struct {
	ChatUsername     string `json:"chat_username"`
	MessagesSent     int    `json:"messages_sent"`
	MessagesReceived int    `json:"messages_received"`
}

// UserStats is the per-user aggregate of relay attempts, one entry per
// correspondent, created lazily on first interaction. The JSON tags are
// both the stored document and the wire shape.
type UserStats struct {
	Username string     `json:"username"`
	Chats    []ChatStat `json:"chats"`
}

func NewUserStats(username string) UserStats {
	return UserStats{Username: username, Chats: []ChatStat{}}
}

// IncrementSent bumps the sent counter for correspondent, appending a new
// entry if none exists. Callers are responsible for serializing calls on
// the same record; the method itself is plain find-or-append.
func (s *UserStats) IncrementSent(correspondent string) {
	for i := range s.Chats {
		if s.Chats[i].ChatUsername == correspondent {
			s.Chats[i].MessagesSent++
			return
		}
	}
	s.Chats = append(s.Chats, ChatStat{ChatUsername: correspondent, MessagesSent: 1})
}

// IncrementReceived bumps the received counter for correspondent, appending
// a new entry if none exists.
func (s *UserStats) IncrementReceived(correspondent string) {
	for i := range s.Chats {
		if s.Chats[i].ChatUsername == correspondent {
			s.Chats[i].MessagesReceived++
			return
		}
	}
	s.Chats = append(s.Chats, ChatStat{ChatUsername: correspondent, MessagesReceived: 1})
}
