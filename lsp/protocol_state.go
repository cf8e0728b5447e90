package lsp

// ProtocolState is the lifecycle state of one connection to a language
// server.
type ProtocolState int

const (
	// No server process.
	StateClientInactive ProtocolState = iota

	// "initialize" sent, reply outstanding.
	StateInitializing

	StateNormal

	// "shutdown" sent, reply outstanding.
	StateShutdown1

	// "exit" sent, waiting for the process to terminate.
	StateShutdown2

	StateProtocolError
	StateProtocolObjectMissing
	StateServerNotRunning
)

var protocolStateNames = [...]string{
	StateClientInactive:        "LSP_PS_CLIENT_INACTIVE",
	StateInitializing:          "LSP_PS_INITIALIZING",
	StateNormal:                "LSP_PS_NORMAL",
	StateShutdown1:             "LSP_PS_SHUTDOWN1",
	StateShutdown2:             "LSP_PS_SHUTDOWN2",
	StateProtocolError:         "LSP_PS_PROTOCOL_ERROR",
	StateProtocolObjectMissing: "LSP_PS_PROTOCOL_OBJECT_MISSING",
	StateServerNotRunning:      "LSP_PS_SERVER_NOT_RUNNING",
}

func (s ProtocolState) String() string {
	if s < 0 || int(s) >= len(protocolStateNames) {
		return "LSP_PS_INVALID"
	}
	return protocolStateNames[s]
}

// IsAbnormal reports whether the state is one that only stopping the
// server can leave.
func (s ProtocolState) IsAbnormal() bool {
	return s >= StateProtocolError
}

// AnnotatedProtocolState is a protocol state with a human-readable
// explanation of how the connection got there.
type AnnotatedProtocolState struct {
	State       ProtocolState
	Description string
}

func (a AnnotatedProtocolState) String() string {
	return a.State.String() + ": " + a.Description
}
