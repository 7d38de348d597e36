package rooms

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"syncwatch/internal/utils"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not in room")
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Manager owns all rooms. Rooms are in-memory and die with the process,
// like the sessions they point at.
type Manager struct {
	logger  *utils.Logger
	chatCap int

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(chatCap int, logger *utils.Logger) *Manager {
	if chatCap <= 0 {
		chatCap = 100
	}
	return &Manager{
		logger:  logger,
		chatCap: chatCap,
		rooms:   make(map[string]*Room),
	}
}

func (m *Manager) newCodeLocked() string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := m.rooms[code]; !taken {
			return code
		}
	}
}

// Create makes a room with the given user as host. Returns the room
// snapshot and the host's user id.
func (m *Manager) Create(hostName string) (*Room, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	userID := uuid.New().String()
	room := &Room{
		Code:      m.newCodeLocked(),
		HostID:    userID,
		Users:     map[string]*User{userID: {Name: hostName, JoinedAt: now, IsHost: true}},
		Media:     MediaState{Type: "youtube", State: "paused", UpdatedAt: now},
		CreatedAt: now,
	}
	m.rooms[room.Code] = room

	m.logger.Info("Room", room.Code, "created by", hostName)
	return room.snapshot(), userID
}

// Join adds a user to an existing room. The first member to join an
// orphaned room inherits host.
func (m *Manager) Join(code, name string) (*Room, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, "", ErrRoomNotFound
	}

	userID := uuid.New().String()
	user := &User{Name: name, JoinedAt: time.Now()}
	room.Users[userID] = user
	if room.HostID == "" {
		room.HostID = userID
		user.IsHost = true
	}

	m.logger.Info("User", name, "joined room", room.Code)
	return room.snapshot(), userID, nil
}

// Leave removes a user; the room is torn down when the last member leaves,
// and host passes to the longest-standing member otherwise.
func (m *Manager) Leave(code, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := room.Users[userID]; !ok {
		return ErrUserNotFound
	}

	delete(room.Users, userID)
	if len(room.Users) == 0 {
		delete(m.rooms, room.Code)
		m.logger.Info("Room", room.Code, "closed (empty)")
		return nil
	}

	if room.HostID == userID {
		var oldest string
		var oldestAt time.Time
		for id, u := range room.Users {
			if oldest == "" || u.JoinedAt.Before(oldestAt) {
				oldest, oldestAt = id, u.JoinedAt
			}
		}
		room.HostID = oldest
		room.Users[oldest].IsHost = true
		m.logger.Info("Host of room", room.Code, "passed to", room.Users[oldest].Name)
	}
	return nil
}

func (m *Manager) Get(code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.snapshot(), nil
}

// PostChat appends a chat message, trimming history to the configured cap.
func (m *Manager) PostChat(code, userID, message string) (*ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	user, ok := room.Users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	msg := ChatMessage{
		UserID:    userID,
		UserName:  user.Name,
		Message:   message,
		Timestamp: time.Now(),
	}
	room.Chat = append(room.Chat, msg)
	if len(room.Chat) > m.chatCap {
		room.Chat = room.Chat[len(room.Chat)-m.chatCap:]
	}
	return &msg, nil
}

// SetMedia points the room at new media and resets playback.
func (m *Manager) SetMedia(code, userID, url, mediaType string) (*MediaState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, ok := room.Users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	room.Media = MediaState{
		URL:       url,
		Type:      mediaType,
		State:     "paused",
		UpdatedAt: time.Now(),
	}
	state := room.Media
	return &state, nil
}

// UpdatePlayback applies a play/pause/seek from one member so the others
// can follow.
func (m *Manager) UpdatePlayback(code, userID, state string, position float64) (*MediaState, error) {
	if state != "playing" && state != "paused" {
		return nil, fmt.Errorf("invalid playback state %q", state)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, ok := room.Users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	room.Media.State = state
	room.Media.Position = position
	room.Media.UpdatedAt = time.Now()
	updated := room.Media
	return &updated, nil
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
