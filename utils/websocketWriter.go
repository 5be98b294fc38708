package utils

import (
	ws "remotefs/websocket"
)

// WebsocketWriter sends every Write as one service message.
type WebsocketWriter struct {
	Service string
	Id      string
	Action  string
	Conn    interface {
		WriteJSON(v any) error
	}
	// Transformer turns a chunk into the message data, which must be JSON.
	Transformer func([]byte) []byte
}

func (w *WebsocketWriter) Write(p []byte) (n int, err error) {
	var transformed []byte
	if w.Transformer != nil {
		transformed = w.Transformer(p)
	} else {
		transformed = p
	}

	err = w.Conn.WriteJSON(&ws.ServiceMessage{
		Service: w.Service,
		Id:      w.Id,
		Action:  w.Action,
		Data:    transformed,
	})

	if err != nil {
		return 0, err
	}

	return len(p), nil
}
