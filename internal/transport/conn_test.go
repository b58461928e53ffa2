package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func startEchoServer(t *testing.T) (wsURL string, serverConn chan *Conn) {
	t.Helper()
	serverConn = make(chan *Conn, 1)
	logger := log.NewWithOptions(io.Discard, log.Options{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn <- New(ws, logger)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/", serverConn
}

func TestSendAndRecvRoundTrip(t *testing.T) {
	wsURL, serverConns := startEchoServer(t)

	clientWS, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer clientWS.Close()

	var server *Conn
	select {
	case server = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	defer server.Close()

	server.Send(map[string]any{"message": "hello"})

	_, raw, err := clientWS.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"hello"}`, string(raw))

	require.NoError(t, clientWS.WriteMessage(websocket.TextMessage, []byte(`{"action":"Check"}`)))
	in, ok := server.Recv()
	require.True(t, ok)
	require.JSONEq(t, `{"action":"Check"}`, string(in))
}

func TestRecvReturnsFalseAfterClose(t *testing.T) {
	wsURL, serverConns := startEchoServer(t)

	clientWS, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var server *Conn
	select {
	case server = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	defer server.Close()

	clientWS.Close()

	_, ok := server.Recv()
	require.False(t, ok)
}
