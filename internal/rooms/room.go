package rooms

import "time"

// MediaState is what the room is currently watching, shared by all members.
type MediaState struct {
	URL       string    `json:"url"`
	Type      string    `json:"type"`  // youtube, video, audio, torrent
	State     string    `json:"state"` // playing, paused
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"last_update"`
}

type ChatMessage struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type User struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	IsHost   bool      `json:"is_host"`
}

// Room holds everything one watch party shares. Access goes through the
// Manager, which owns the lock.
type Room struct {
	Code      string           `json:"room_code"`
	HostID    string           `json:"host_id"`
	Users     map[string]*User `json:"users"`
	Media     MediaState       `json:"media"`
	Chat      []ChatMessage    `json:"chat"`
	CreatedAt time.Time        `json:"created_at"`
}

// snapshot returns a copy safe to serialize after the lock is released.
func (r *Room) snapshot() *Room {
	users := make(map[string]*User, len(r.Users))
	for id, u := range r.Users {
		copied := *u
		users[id] = &copied
	}
	chat := make([]ChatMessage, len(r.Chat))
	copy(chat, r.Chat)

	return &Room{
		Code:      r.Code,
		HostID:    r.HostID,
		Users:     users,
		Media:     r.Media,
		Chat:      chat,
		CreatedAt: r.CreatedAt,
	}
}
