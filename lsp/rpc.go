package lsp

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"

	"rockerboo/lsp-client-manager/collections"
	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/logger"
)

// rpcSession is the JSON-RPC conversation with one server process.
// Apart from pendingNotifications, its state is only touched on the
// event loop.
type rpcSession struct {
	conn   *jsonrpc2.Conn
	stream *recordingStream

	// Request ID to method, for requests without a reply yet.
	outstanding map[int32]string

	// Requests the client stopped caring about. Their replies are
	// dropped.
	canceled map[int32]struct{}

	// Replies received and not yet taken.
	replies map[int32]*Reply

	// Notifications received but not yet processed on the loop.
	pendingNotifications atomic.Int32
}

func newRPCSession() *rpcSession {
	return &rpcSession{
		outstanding: make(map[int32]string),
		canceled:    make(map[int32]struct{}),
		replies:     make(map[int32]*Reply),
	}
}

func (s *rpcSession) idInUse(id int32) bool {
	_, outstanding := s.outstanding[id]
	_, canceled := s.canceled[id]
	_, replied := s.replies[id]
	return outstanding || canceled || replied
}

func (s *rpcSession) call(id int32, method string, params any) error {
	s.outstanding[id] = method
	_, err := s.conn.DispatchCall(context.Background(), method, params,
		jsonrpc2.PickID(jsonrpc2.ID{Num: uint64(id)}))
	return errors.Wrapf(err, "failed to send %q request", method)
}

func (s *rpcSession) notify(method string, params any) error {
	return errors.Wrapf(s.conn.Notify(context.Background(), method, params),
		"failed to send %q notification", method)
}

func (s *rpcSession) close() {
	if err := s.conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		logger.Debug("Closing JSON-RPC connection:", err)
	}
}

func (s *rpcSession) outstandingIDs() []int32 {
	return collections.SortedKeys(s.outstanding)
}

func (s *rpcSession) replyIDs() []int32 {
	return collections.SortedKeys(s.replies)
}

// requestIDs hands out request IDs that are positive, increase until
// they wrap, and never repeat an ID the session still knows about.
type requestIDs struct {
	next int32
}

func (r *requestIDs) allocate(inUse func(int32) bool) int32 {
	for iterations := 0; ; iterations++ {
		contract.Assert(iterations < 1000, "found an unused request ID")

		if r.next <= 0 {
			r.next = 1
		}
		id := r.next
		if id == math.MaxInt32 {
			r.next = 1
		} else {
			r.next++
		}

		if !inUse(id) {
			return id
		}
	}
}

// replyID extracts a request ID this client could have sent.
func replyID(id jsonrpc2.ID) (int32, bool) {
	if id.IsString || id.Num == 0 || id.Num > math.MaxInt32 {
		return 0, false
	}
	return int32(id.Num), true
}
