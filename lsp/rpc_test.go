package lsp

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDs(t *testing.T) {
	var ids requestIDs
	none := func(int32) bool { return false }

	assert.Equal(t, int32(1), ids.allocate(none))
	assert.Equal(t, int32(2), ids.allocate(none))

	inUse := map[int32]bool{3: true, 4: true}
	assert.Equal(t, int32(5), ids.allocate(func(id int32) bool { return inUse[id] }))

	ids.next = math.MaxInt32
	assert.Equal(t, int32(math.MaxInt32), ids.allocate(none))
	assert.Equal(t, int32(1), ids.allocate(none))
}

func TestRequestIDsSkipSessionIDs(t *testing.T) {
	s := newRPCSession()
	s.outstanding[1] = "a"
	s.canceled[2] = struct{}{}
	s.replies[3] = &Reply{ID: 3}

	var ids requestIDs
	assert.Equal(t, int32(4), ids.allocate(s.idInUse))
	assert.Equal(t, []int32{1}, s.outstandingIDs())
	assert.Equal(t, []int32{3}, s.replyIDs())
}

func TestReplyID(t *testing.T) {
	id, ok := replyID(jsonrpc2.ID{Num: 7})
	assert.True(t, ok)
	assert.Equal(t, int32(7), id)

	_, ok = replyID(jsonrpc2.ID{Str: "7", IsString: true})
	assert.False(t, ok)
	_, ok = replyID(jsonrpc2.ID{Num: 0})
	assert.False(t, ok)
	_, ok = replyID(jsonrpc2.ID{Num: math.MaxInt32 + 1})
	assert.False(t, ok)
}

func TestIsDisconnect(t *testing.T) {
	assert.True(t, isDisconnect(nil))
	assert.True(t, isDisconnect(io.EOF))
	assert.True(t, isDisconnect(errors.Wrap(io.ErrUnexpectedEOF, "reading header")))
	assert.True(t, isDisconnect(io.ErrClosedPipe))
	assert.True(t, isDisconnect(os.ErrClosed))
	assert.False(t, isDisconnect(errors.New("invalid character 'x' looking for beginning of value")))
}

func TestRecordingStreamKeepsFirstError(t *testing.T) {
	r, w := io.Pipe()
	s := newRecordingStream(struct {
		io.Reader
		io.Writer
		io.Closer
	}{r, io.Discard, r})

	go func() {
		_, _ = w.Write([]byte("Content-Length: 5\r\n\r\nhello"))
		_ = w.Close()
	}()

	var v any
	err := s.ReadObject(&v)
	require.Error(t, err)
	assert.False(t, isDisconnect(err))

	_ = s.ReadObject(&v)
	assert.Equal(t, err, s.ReadError())
}

func TestReply(t *testing.T) {
	raw := json.RawMessage(`{"x":1}`)
	result := newReply(3, "custom/a", &jsonrpc2.Response{Result: &raw})
	assert.False(t, result.IsError())
	value, err := result.Value()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1)}, value)
	assert.Equal(t, `reply 3 to custom/a: {"x":1}`, result.String())

	empty := newReply(4, "custom/b", &jsonrpc2.Response{})
	assert.Equal(t, "null", string(empty.Result))

	failed := newReply(5, "custom/c", &jsonrpc2.Response{Error: &jsonrpc2.Error{Code: -32601, Message: "nope"}})
	assert.True(t, failed.IsError())
	assert.Nil(t, failed.Result)
	var out any
	assert.Error(t, failed.Decode(&out))
	assert.Equal(t, "reply 5 to custom/c: error -32601: nope", failed.String())

	var n int
	err = result.Decode(&n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed custom/a reply")
}

func TestOpenStderrLog(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "sub", "server.log")

	f1, got1 := openStderrLog(name)
	require.NotNil(t, f1)
	defer f1.Close()
	assert.Equal(t, name, got1)

	f2, got2 := openStderrLog(name)
	require.NotNil(t, f2)
	defer f2.Close()
	assert.Equal(t, filepath.Join(dir, "sub", "server-2.log"), got2)

	data, err := os.ReadFile(got2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Started LSP connection at "))

	f, got := openStderrLog("")
	assert.Nil(t, f)
	assert.Empty(t, got)
}

func TestProtocolStateNames(t *testing.T) {
	assert.Equal(t, "LSP_PS_SHUTDOWN2", StateShutdown2.String())
	assert.Equal(t, "LSP_PS_INVALID", ProtocolState(99).String())
	assert.False(t, StateShutdown1.IsAbnormal())
	assert.True(t, StateServerNotRunning.IsAbnormal())
	assert.Equal(t, "LSP_PS_NORMAL: fine", AnnotatedProtocolState{StateNormal, "fine"}.String())
}
