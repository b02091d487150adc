package settings

import (
	"time"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

// Settings holds per-type delivery switches for one user. A type missing
// from Enabled is delivered.
type Settings struct {
	UserID    string                     `json:"user_id"`
	Enabled   map[notification.Type]bool `json:"enabled"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func Default(userID string) *Settings {
	return &Settings{UserID: userID, Enabled: map[notification.Type]bool{}}
}

func (s *Settings) Allows(t notification.Type) bool {
	if s == nil || s.Enabled == nil {
		return true
	}
	on, ok := s.Enabled[t]
	return !ok || on
}

// Patch switches individual types on or off and leaves the rest as they are.
type Patch map[notification.Type]bool

func (s *Settings) Apply(p Patch) {
	if s.Enabled == nil {
		s.Enabled = make(map[notification.Type]bool, len(p))
	}
	for t, on := range p {
		s.Enabled[t] = on
	}
}
