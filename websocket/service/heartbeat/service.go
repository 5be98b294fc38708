package heartbeat

import (
	"encoding/json"

	ws "remotefs/websocket"
)

type messageWriter interface {
	WriteJSON(v any) error
}

// HeartbeatService echoes every message back. It is registered passively,
// so pings alone do not keep an idle connection open.
type HeartbeatService struct {
	conn messageWriter
}

func NewService() ws.Service {
	return &HeartbeatService{}
}

func (s *HeartbeatService) Register(conn *ws.Conn) {
	s.conn = conn
}

func (s *HeartbeatService) Name() string {
	return "heartbeat"
}

func (s *HeartbeatService) HandleTextMessage(id, action string, _ json.RawMessage) {
	s.conn.WriteJSON(&ws.ServiceMessage{Service: s.Name(), Action: action, Id: id})
}

func (s *HeartbeatService) Cleanup(err error) {}
