package lsp

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"rockerboo/lsp-client-manager/logger"
)

// clientHandler receives requests and notifications from the server on
// the JSON-RPC read goroutine. Requests are answered right away;
// notifications are handed to the connection on the event loop.
type clientHandler struct {
	session    *rpcSession
	connection *ServerConnection
}

func (h *clientHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		h.session.pendingNotifications.Add(1)
		h.connection.loop.Post(func() {
			h.session.pendingNotifications.Add(-1)
			h.connection.handleNotification(h.session, req)
		})
		return
	}

	var result any
	switch req.Method {
	case protocol.MethodClientRegisterCapability:
		result = map[string]any{}

	case protocol.MethodWorkspaceConfiguration:
		result = []any{}

	case protocol.MethodWorkDoneProgressCreate:
		result = nil

	default:
		logger.Warn("Unhandled server request:", req.Method)

		err := &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "Method not found: " + req.Method,
		}
		if replyErr := conn.ReplyWithError(ctx, req.ID, err); replyErr != nil {
			logger.Error("Failed to reply with error:", replyErr)
		}
		return
	}

	if err := conn.Reply(ctx, req.ID, result); err != nil {
		logger.Debug("Failed to reply to", req.Method, err)
	}
}
