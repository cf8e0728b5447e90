package lsp

import (
	"fmt"
	"time"
)

// ConnectionMetrics counts traffic on one connection since it was
// created. The counters survive stop/start cycles.
type ConnectionMetrics struct {
	State                 string    `json:"state"`
	ProcessID             int       `json:"process_id,omitempty"`
	Starts                int64     `json:"starts"`
	RequestsSent          int64     `json:"requests_sent"`
	NotificationsSent     int64     `json:"notifications_sent"`
	RepliesReceived       int64     `json:"replies_received"`
	ErrorReplies          int64     `json:"error_replies"`
	DiscardedReplies      int64     `json:"discarded_replies"`
	NotificationsReceived int64     `json:"notifications_received"`
	LastStarted           time.Time `json:"last_started,omitzero"`
	LastError             string    `json:"last_error,omitempty"`
	LastErrorTime         time.Time `json:"last_error_time,omitzero"`
}

func (m *ConnectionMetrics) started(pid int) {
	m.Starts++
	m.ProcessID = pid
	m.LastStarted = time.Now()
}

func (m *ConnectionMetrics) recordReply(r *Reply) {
	m.RepliesReceived++
	if r.IsError() {
		m.ErrorReplies++
	}
}

func (m *ConnectionMetrics) recordError(msg string) {
	m.LastError = msg
	m.LastErrorTime = time.Now()
}

func (m *ConnectionMetrics) summary() string {
	return fmt.Sprintf("Sent %d requests and %d notifications; received %d replies (%d errors, %d discarded) and %d notifications.",
		m.RequestsSent, m.NotificationsSent, m.RepliesReceived, m.ErrorReplies, m.DiscardedReplies, m.NotificationsReceived)
}
