package types

import "strings"

// HostName identifies the machine a document lives on: the local host
// or a remote host reached over SSH.
type HostName struct {
	ssh  bool
	name string
}

// LocalHost returns the name of the machine running the editor.
func LocalHost() HostName {
	return HostName{}
}

// SSHHost returns the name of a remote host reached over SSH.
func SSHHost(name string) HostName {
	return HostName{ssh: true, name: name}
}

func (h HostName) IsLocal() bool {
	return !h.ssh
}

// SSHName returns the remote host name; it is empty for the local host.
func (h HostName) SSHName() string {
	return h.name
}

// String returns "local" or "ssh:<name>".
func (h HostName) String() string {
	if !h.ssh {
		return "local"
	}
	return "ssh:" + h.name
}

// Compare orders the local host before all SSH hosts, and SSH hosts by
// name.
func (h HostName) Compare(other HostName) int {
	switch {
	case h.ssh == other.ssh:
		return strings.Compare(h.name, other.name)
	case !h.ssh:
		return -1
	default:
		return 1
	}
}
