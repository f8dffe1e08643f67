package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	MsgTypePing  = "ping"
	MsgTypeError = "error"

	ErrTypeMsgDecode = "msg_decode"
	ErrTypeMsgEncode = "msg_encode"
)

// Msg is a message exchanged over a WebSocket connection.
type Msg struct {
	Type      string          `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ResponseType returns the type of the message that answers a message of
// type t.
func ResponseType(t string) string {
	return t + "_response"
}

// NewMsg creates a message with v encoded as its data.
func NewMsg(msgType string, requestID uint32, v any) (Msg, error) {
	msg := Msg{
		Type:      msgType,
		RequestID: requestID,
	}

	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return Msg{}, errors.New("encoding message data failed").
				WithType(ErrTypeMsgEncode).
				WithTag("msg_type", msgType).
				Wrap(err)
		}
		msg.Data = data
	}
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

// Receiver is a function that reads the next message from a connection and
// returns it with its size in bytes.
type Receiver func() (Msg, int, error)

// Sender is a function that writes a message to a connection and returns
// its size in bytes.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to the connected client.
type ResponseSender interface {
	SendMsg(Msg)
}

// Receive reads a message from the given connection.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeMsgDecode).
			Wrap(err)
	}
	return msg, len(b), nil
}

// Send writes a message to the given connection.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithType(ErrTypeMsgEncode).
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}
