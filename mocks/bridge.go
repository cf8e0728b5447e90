package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/diagnostics"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/types"
)

// MockBridge implements interfaces.BridgeInterface for testing
type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) StartServer(ctx context.Context, path string) (lsp.AnnotatedProtocolState, error) {
	args := m.Called(path)
	return args.Get(0).(lsp.AnnotatedProtocolState), args.Error(1)
}

func (m *MockBridge) StopServer(ctx context.Context, path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockBridge) ServerStatus(ctx context.Context, path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockBridge) OpenFile(ctx context.Context, path string) (int64, error) {
	args := m.Called(path)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBridge) UpdateFile(ctx context.Context, path string, text *string) (int64, error) {
	args := m.Called(path, text)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBridge) CloseFile(ctx context.Context, path string) error {
	return m.Called(path).Error(0)
}

func (m *MockBridge) RelatedLocation(ctx context.Context, path string, kind lsp.SymbolRequestKind, pos protocol.Position) (*lsp.Reply, error) {
	args := m.Called(path, kind, pos)
	reply, _ := args.Get(0).(*lsp.Reply)
	return reply, args.Error(1)
}

func (m *MockBridge) Request(ctx context.Context, path, method string, params json.RawMessage) (*lsp.Reply, error) {
	args := m.Called(path, method, params)
	reply, _ := args.Get(0).(*lsp.Reply)
	return reply, args.Error(1)
}

func (m *MockBridge) Notify(ctx context.Context, path, method string, params json.RawMessage) error {
	return m.Called(path, method, params).Error(0)
}

func (m *MockBridge) Diagnostics(ctx context.Context, path string, wait bool) (*diagnostics.TextDocumentDiagnostics, error) {
	args := m.Called(path, wait)
	diags, _ := args.Get(0).(*diagnostics.TextDocumentDiagnostics)
	return diags, args.Error(1)
}

func (m *MockBridge) CodeLines(ctx context.Context, path string, locations []types.HostFileLine) ([]string, error) {
	args := m.Called(path, locations)
	lines, _ := args.Get(0).([]string)
	return lines, args.Error(1)
}
