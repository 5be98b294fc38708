package websocket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remotefs/websocket"
)

type echoService struct {
	conn    *websocket.Conn
	cleaned chan error
}

func (s *echoService) Register(conn *websocket.Conn) { s.conn = conn }
func (s *echoService) Name() string                  { return "echo" }
func (s *echoService) Cleanup(err error)             { s.cleaned <- err }

func (s *echoService) HandleTextMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&websocket.ServiceMessage{Service: s.Name(), Id: id, Action: action, Data: data})
}

func startServer(t *testing.T, svc websocket.Service) *ws.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server, err := websocket.NewServer(w, r, time.Minute, zap.NewNop())
		if err != nil {
			return
		}
		server.Register(svc)
		server.Start()
	}))
	t.Cleanup(srv.Close)

	client, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return client
}

func TestServerDispatch(t *testing.T) {
	svc := &echoService{cleaned: make(chan error, 1)}
	client := startServer(t, svc)

	require.NoError(t, client.WriteJSON(&websocket.ServiceMessage{
		Service: "echo",
		Id:      "/tmp",
		Action:  "list",
		Data:    json.RawMessage(`{"x":1}`),
	}))

	var reply websocket.ServiceMessage
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, client.ReadJSON(&reply))
	assert.Equal(t, "echo", reply.Service)
	assert.Equal(t, "/tmp", reply.Id)
	assert.Equal(t, "list", reply.Action)
	assert.JSONEq(t, `{"x":1}`, string(reply.Data))

	// unknown services, binary frames and garbage are skipped
	require.NoError(t, client.WriteJSON(&websocket.ServiceMessage{Service: "nope"}))
	require.NoError(t, client.WriteMessage(ws.BinaryMessage, []byte{1, 2, 3}))
	require.NoError(t, client.WriteMessage(ws.TextMessage, []byte("{")))
	require.NoError(t, client.WriteJSON(&websocket.ServiceMessage{Service: "echo", Id: "again"}))
	require.NoError(t, client.ReadJSON(&reply))
	assert.Equal(t, "again", reply.Id)

	require.NoError(t, client.Close())
	select {
	case err := <-svc.cleaned:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services were not cleaned up")
	}
}
