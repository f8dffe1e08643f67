package websocket

import (
	"testing"
	"time"

	"github.com/aukilabs/celltree/celltree"
	"github.com/aukilabs/celltree/mesh"
	"github.com/aukilabs/celltree/models"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestIndex(t *testing.T) *celltree.Index {
	m, err := mesh.New(
		[]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		[][]int{{0, 1, 2}, {0, 2, 3}},
	)
	require.NoError(t, err)

	idx, err := celltree.New(m)
	require.NoError(t, err)
	return idx
}

func newTestHandler(t *testing.T, idleTimeout time.Duration, pool *models.IDPool, disabled ...string) func() Handler {
	runner := models.QueryRunner{
		Index:    newTestIndex(t),
		Disabled: make(map[string]bool),
	}
	for _, op := range disabled {
		runner.Disabled[op] = true
	}

	return func() Handler {
		var h Handler = &QueryHandler{
			Runner:            runner,
			ClientIdleTimeout: idleTimeout,
			Connections:       pool,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://celltree-test.com")
		return h
	}
}

func sendTestMsg(t *testing.T, conn *websocket.Conn, msgType string, requestID uint32, v any) {
	msg, err := NewMsg(msgType, requestID, v)
	require.NoError(t, err)

	_, err = Send(conn, msg)
	require.NoError(t, err)
}

func receiveTestMsg(t *testing.T, conn *websocket.Conn) Msg {
	err := conn.SetReadDeadline(time.Now().Add(time.Second * 2))
	require.NoError(t, err)

	msg, _, err := Receive(conn)
	require.NoError(t, err)
	return msg
}

func requireErrorMsg(t *testing.T, msg Msg, requestID uint32, errType string) {
	require.Equal(t, MsgTypeError, msg.Type)
	require.Equal(t, requestID, msg.RequestID)

	var data ErrorData
	require.NoError(t, msg.DataTo(&data))
	require.Equal(t, errType, data.Type)
	require.NotEmpty(t, data.Message)
}

func TestHandlerHandlePing(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(t, time.Minute, nil))
	defer close()

	sendTestMsg(t, clientA, MsgTypePing, 1, nil)

	msg := receiveTestMsg(t, clientA)
	require.Equal(t, "ping_response", msg.Type)
	require.Equal(t, uint32(1), msg.RequestID)
	require.Empty(t, msg.Data)
}

func TestNewTestingEnvOverlapping(t *testing.T) {
	first, _, closeFirst := NewTestingEnv(t, newTestHandler(t, time.Minute, nil))
	second, _, closeSecond := NewTestingEnv(t, newTestHandler(t, time.Minute, nil))
	defer closeSecond()

	sendTestMsg(t, first, MsgTypePing, 1, nil)
	sendTestMsg(t, second, MsgTypePing, 2, nil)
	require.Equal(t, uint32(1), receiveTestMsg(t, first).RequestID)
	require.Equal(t, uint32(2), receiveTestMsg(t, second).RequestID)

	closeFirst()

	sendTestMsg(t, second, MsgTypePing, 3, nil)
	require.Equal(t, uint32(3), receiveTestMsg(t, second).RequestID)
}

func TestHandlerHandleQuery(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(t, time.Minute, nil))
	defer close()

	t.Run("locate points", func(t *testing.T) {
		sendTestMsg(t, clientA, celltree.OpLocatePoints, 2, models.PointsRequest{
			Points: [][]float64{{0.75, 0.25}, {0.25, 0.75}, {2, 2}},
		})

		msg := receiveTestMsg(t, clientA)
		require.Equal(t, "locate_points_response", msg.Type)
		require.Equal(t, uint32(2), msg.RequestID)

		var res models.CellsResponse
		require.NoError(t, msg.DataTo(&res))
		require.Equal(t, []int{0, 1, -1}, res.Cells)
	})

	t.Run("intersect boxes", func(t *testing.T) {
		sendTestMsg(t, clientB, celltree.OpIntersectBoxes, 3, models.BoxesRequest{
			Boxes: [][]float64{{0.9, 0.1, 1.5, 0.2}},
		})

		msg := receiveTestMsg(t, clientB)
		require.Equal(t, "intersect_boxes_response", msg.Type)

		var res models.PairsResponse
		require.NoError(t, msg.DataTo(&res))
		require.Equal(t, [][2]int{{0, 0}, {0, 1}}, res.Pairs)
	})

	t.Run("intersect faces", func(t *testing.T) {
		sendTestMsg(t, clientA, celltree.OpIntersectFaces, 4, models.FacesRequest{
			Faces: [][][]float64{{{-1, -1}, {2, -1}, {2, 2}, {-1, 2}}},
		})

		msg := receiveTestMsg(t, clientA)
		require.Equal(t, "intersect_faces_response", msg.Type)

		var res models.FacesResponse
		require.NoError(t, msg.DataTo(&res))
		require.Len(t, res.Hits, 2)

		var area float64
		for _, h := range res.Hits {
			area += h.Area
		}
		require.InDelta(t, 1, area, 1e-9)
	})
}

func TestHandlerQueryErrors(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(t, time.Minute, nil, celltree.OpIntersectFaces))
	defer close()

	t.Run("shape mismatch", func(t *testing.T) {
		sendTestMsg(t, clientA, celltree.OpLocateBoxes, 5, models.BoxesRequest{
			Boxes: [][]float64{{0, 0, 1}},
		})
		requireErrorMsg(t, receiveTestMsg(t, clientA), 5, models.ErrTypeShapeMismatch)
	})

	t.Run("unknown operation", func(t *testing.T) {
		sendTestMsg(t, clientA, "locate_volumes", 6, struct{}{})
		requireErrorMsg(t, receiveTestMsg(t, clientA), 6, models.ErrTypeUnknownOperation)
	})

	t.Run("disabled operation", func(t *testing.T) {
		sendTestMsg(t, clientA, celltree.OpIntersectFaces, 7, models.FacesRequest{})
		requireErrorMsg(t, receiveTestMsg(t, clientA), 7, models.ErrTypeOperationDisabled)
	})

	t.Run("missing payload", func(t *testing.T) {
		sendTestMsg(t, clientA, celltree.OpLocatePoints, 8, nil)
		requireErrorMsg(t, receiveTestMsg(t, clientA), 8, models.ErrTypeInvalidRequest)
	})

	t.Run("malformed message", func(t *testing.T) {
		err := websocket.Message.Send(clientA, `{"type": `)
		require.NoError(t, err)
		requireErrorMsg(t, receiveTestMsg(t, clientA), 0, ErrTypeMsgDecode)
	})

	t.Run("connection stays open", func(t *testing.T) {
		sendTestMsg(t, clientA, MsgTypePing, 9, nil)
		msg := receiveTestMsg(t, clientA)
		require.Equal(t, "ping_response", msg.Type)
		require.Equal(t, uint32(9), msg.RequestID)
	})
}

func TestHandlerIdleTimeout(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(t, time.Millisecond*50, nil))
	defer close()

	err := clientA.SetReadDeadline(time.Now().Add(time.Second * 2))
	require.NoError(t, err)

	_, _, err = Receive(clientA)
	require.Error(t, err)
	require.False(t, isTimeout(err), "connection was not closed by the server")
}

func TestHandlerConnections(t *testing.T) {
	var pool models.IDPool

	clientA, clientB, close := NewTestingEnv(t, newTestHandler(t, time.Minute, &pool))
	defer close()

	// Round trips guarantee both connections are registered.
	sendTestMsg(t, clientA, MsgTypePing, 1, nil)
	receiveTestMsg(t, clientA)
	sendTestMsg(t, clientB, MsgTypePing, 1, nil)
	receiveTestMsg(t, clientB)
	require.Equal(t, 2, pool.InUse())

	clientA.Close()
	require.Eventually(t, func() bool {
		return pool.InUse() == 1
	}, time.Second*2, time.Millisecond*10)
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
