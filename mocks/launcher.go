package mocks

import (
	"github.com/stretchr/testify/mock"

	"rockerboo/lsp-client-manager/lsp"
)

// MockLauncher implements lsp.Launcher for testing
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(req lsp.LaunchRequest) (lsp.ServerProcess, error) {
	args := m.Called(req)
	proc, _ := args.Get(0).(lsp.ServerProcess)
	return proc, args.Error(1)
}
