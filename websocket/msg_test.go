package websocket

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMsg(t *testing.T) {
	t.Run("new message", func(t *testing.T) {
		msg, err := NewMsg("locate_points", 42, map[string]any{"points": [][]float64{{1, 2}}})
		require.NoError(t, err)
		require.Equal(t, "locate_points", msg.Type)
		require.Equal(t, uint32(42), msg.RequestID)
		require.JSONEq(t, `{"points": [[1, 2]]}`, string(msg.Data))
	})

	t.Run("message without data", func(t *testing.T) {
		msg, err := NewMsg(MsgTypePing, 1, nil)
		require.NoError(t, err)
		require.Nil(t, msg.Data)
	})

	t.Run("decode data", func(t *testing.T) {
		msg := Msg{Type: "locate_points", Data: []byte(`{"points": [[1, 2]]}`)}

		var req struct {
			Points [][]float64 `json:"points"`
		}
		require.NoError(t, msg.DataTo(&req))
		require.Equal(t, [][]float64{{1, 2}}, req.Points)

		msg.Data = []byte(`{"points": `)
		err := msg.DataTo(&req)
		require.True(t, errors.IsType(err, ErrTypeMsgDecode))
	})

	t.Run("response type", func(t *testing.T) {
		require.Equal(t, "intersect_faces_response", ResponseType("intersect_faces"))
	})

	t.Run("error message", func(t *testing.T) {
		msg := errorMsg(3, errors.New("boom").WithType("test"))
		require.Equal(t, MsgTypeError, msg.Type)
		require.Equal(t, uint32(3), msg.RequestID)

		var data ErrorData
		require.NoError(t, msg.DataTo(&data))
		require.Equal(t, "test", data.Type)
		require.NotEmpty(t, data.Message)
	})
}
