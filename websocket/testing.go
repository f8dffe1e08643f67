package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aukilabs/celltree/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	testingEnvOnce sync.Once
	testingLogMu   sync.Mutex
	testingLogger  func(args ...any)
)

// Creates a testing environement to unit test handlers. Encoders and the
// logger are installed once since handler goroutines of a previous
// environment may still be running.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	testingEnvOnce.Do(func() {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
		errors.Encoder = json.Marshal

		logs.SetLogger(func(e logs.Entry) {
			testingLogMu.Lock()
			defer testingLogMu.Unlock()

			if testingLogger != nil {
				testingLogger(e)
			}
		})
	})

	setTestingLogger(t.Log)

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		setTestingLogger(nil)
		close()
	}
}

func setTestingLogger(logger func(args ...any)) {
	testingLogMu.Lock()
	defer testingLogMu.Unlock()

	testingLogger = logger
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	newConn := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-for", "192.0.0.0")
		config.Header.Set(models.HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		return conn
	}

	clientA := newConn()
	clientB := newConn()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
	}
}
