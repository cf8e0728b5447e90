package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockListener implements lsp.Listener for testing
type MockListener struct {
	mock.Mock
}

// NewMockListener returns a listener that accepts any event.
func NewMockListener() *MockListener {
	l := &MockListener{}
	l.On("ChangedProtocolState").Maybe()
	l.On("HasPendingDiagnostics").Maybe()
	l.On("HasPendingErrorMessages").Maybe()
	l.On("HasReplyForID", mock.Anything).Maybe()
	return l
}

func (m *MockListener) ChangedProtocolState() {
	m.Called()
}

func (m *MockListener) HasPendingDiagnostics() {
	m.Called()
}

func (m *MockListener) HasPendingErrorMessages() {
	m.Called()
}

func (m *MockListener) HasReplyForID(id int32) {
	m.Called(id)
}
