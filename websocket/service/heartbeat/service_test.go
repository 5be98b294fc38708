package heartbeat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "remotefs/websocket"
)

type mockWsConn struct {
	messages []any
	mutex    sync.Mutex
}

func (m *mockWsConn) WriteJSON(v any) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.messages = append(m.messages, v)
	return nil
}

func TestHeartbeatService_Name(t *testing.T) {
	assert.Equal(t, "heartbeat", NewService().Name())
}

func TestHeartbeatService_HandleTextMessage(t *testing.T) {
	conn := &mockWsConn{}
	service := &HeartbeatService{conn: conn}

	testCases := []struct {
		name     string
		id       string
		action   string
		expected ws.ServiceMessage
	}{
		{
			name:     "Simple heartbeat",
			id:       "test-id-1",
			action:   "ping",
			expected: ws.ServiceMessage{Service: "heartbeat", Action: "ping", Id: "test-id-1"},
		},
		{
			name:     "Different action",
			id:       "test-id-2",
			action:   "pong",
			expected: ws.ServiceMessage{Service: "heartbeat", Action: "pong", Id: "test-id-2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service.HandleTextMessage(tc.id, tc.action, json.RawMessage(`{}`))

			conn.mutex.Lock()
			defer conn.mutex.Unlock()
			require.NotEmpty(t, conn.messages)

			msg := conn.messages[len(conn.messages)-1].(*ws.ServiceMessage)
			assert.Equal(t, tc.expected, *msg)
		})
	}
}

func TestHeartbeatService_Cleanup(t *testing.T) {
	service := NewService()
	assert.NotPanics(t, func() {
		service.Cleanup(nil)
		service.Cleanup(errors.New("test error"))
	})
}
