package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
)

// Reply is a server's answer to one request.
type Reply struct {
	ID     int32
	Method string

	// Result is the raw result, "null" when the server sent none. It is
	// nil when Error is set.
	Result json.RawMessage
	Error  *jsonrpc2.Error
}

func newReply(id int32, method string, resp *jsonrpc2.Response) *Reply {
	r := &Reply{ID: id, Method: method, Error: resp.Error}
	if resp.Error == nil {
		r.Result = json.RawMessage("null")
		if resp.Result != nil {
			r.Result = append(json.RawMessage(nil), *resp.Result...)
		}
	}
	return r
}

func (r *Reply) IsError() bool {
	return r.Error != nil
}

// Decode unmarshals the result into v, or returns the error reply.
func (r *Reply) Decode(v any) error {
	if r.Error != nil {
		return r.Error
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return errors.Wrapf(err, "malformed %s reply", r.Method)
	}
	return nil
}

// Value returns the result as a generic JSON tree.
func (r *Reply) Value() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Reply) String() string {
	if r.Error != nil {
		return fmt.Sprintf("reply %d to %s: error %d: %s", r.ID, r.Method, r.Error.Code, r.Error.Message)
	}
	return fmt.Sprintf("reply %d to %s: %s", r.ID, r.Method, r.Result)
}
