package realtime

import (
	"encoding/json"

	"github.com/officehub/console/internal/ierr"
)

// Frame is the client-to-server envelope. A frame without an id is a
// notification and expects no reply.
type Frame struct {
	Id     int              `json:"id,omitempty"`
	Method string           `json:"method"`
	Params *json.RawMessage `json:"params,omitempty"`
}

func NewNotification(method string, params *json.RawMessage) Frame {
	return Frame{
		Method: method,
		Params: params,
	}
}

func (f Frame) ReplyExpected() bool {
	return f.Id != 0
}

// Response is the reply half of the envelope, correlated by RequestId.
type Response struct {
	RequestId int              `json:"requestId,omitempty"`
	Result    *json.RawMessage `json:"result,omitempty"`
	Error     *ierr.Error      `json:"error,omitempty"`
}

func (r Response) IsFailure() bool {
	return r.Error != nil
}

// envelope is the inbound union of Frame and Response: a set Method
// means a server-pushed event, a set RequestId means a reply.
type envelope struct {
	Id        int              `json:"id,omitempty"`
	Method    string           `json:"method,omitempty"`
	Params    *json.RawMessage `json:"params,omitempty"`
	RequestId int              `json:"requestId,omitempty"`
	Result    *json.RawMessage `json:"result,omitempty"`
	Error     *ierr.Error      `json:"error,omitempty"`
}

// Method names the client sends. Everything else on the wire is a
// domain event name.
const (
	MethodHeartbeat = "heartbeat"
	MethodAuth      = "auth"
	MethodJoin      = "join"
)

type AuthParams struct {
	Token string `json:"token"`
}

type AuthResult struct {
	Success   bool   `json:"success"`
	SessionId string `json:"sessionId,omitempty"`
}

type JoinParams struct {
	Room string `json:"room"`
}

type JoinResult struct {
	Room      string `json:"room"`
	SessionId string `json:"sessionId,omitempty"`
}

type HeartbeatParams struct {
	Timestamp string `json:"timestamp"`
}

func marshalParams(v any) (*json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}

	rawJson, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	params := json.RawMessage(rawJson)

	return &params, nil
}
