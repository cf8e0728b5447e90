package mcpserver

import (
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Session is a server.ClientSession for clients that connect without
// creating their own.
type Session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	createdAt     time.Time
}

func NewSession(id string) *Session {
	return &Session{
		id:            id,
		notifications: make(chan mcp.JSONRPCNotification, 10),
		createdAt:     time.Now(),
	}
}

func (s *Session) SessionID() string {
	return s.id
}

func (s *Session) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

func (s *Session) Initialize() {
	s.initialized.Store(true)
}

func (s *Session) Initialized() bool {
	return s.initialized.Load()
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
