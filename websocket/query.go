package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/celltree/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// QueryHandler represents a service that answers cell tree queries sent by a
// connected client.
type QueryHandler struct {
	// The runner that executes queries against the served index.
	Runner models.QueryRunner

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The pool that numbers live connections. Optional.
	Connections *models.IDPool

	conn         *websocket.Conn
	clientID     string
	connectionID uint32
}

func (h *QueryHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	h.clientID = conn.Request().Header.Get(models.HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	if h.Connections != nil {
		h.connectionID = h.Connections.Acquire()
	}
}

func (h *QueryHandler) HandleDisconnect(_ error) {
	if h.Connections != nil && h.connectionID != 0 {
		h.Connections.Release(h.connectionID)
		h.connectionID = 0
	}
}

func (h *QueryHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	res, err := NewMsg(ResponseType(MsgTypePing), msg.RequestID, nil)
	if err != nil {
		return err
	}

	respond.SendMsg(res)
	return nil
}

// HandleQuery runs the query named by the message type. Rejected queries are
// answered with an error message and keep the connection open.
func (h *QueryHandler) HandleQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	res, err := h.Runner.Run(msg.Type, msg.Data)
	if err != nil {
		respond.SendMsg(errorMsg(msg.RequestID, err))
		return nil
	}

	out, err := NewMsg(ResponseType(msg.Type), msg.RequestID, res.Data)
	if err != nil {
		return err
	}

	respond.SendMsg(out)
	return nil
}

func (h *QueryHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *QueryHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *QueryHandler) Close() {
}

func (h *QueryHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *QueryHandler) GetClientID() string {
	return h.clientID
}
