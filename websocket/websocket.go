package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Conn struct {
	*ws.Conn
	*sync.Mutex
	// TextMessage carries decoded service messages until the peer goes away.
	TextMessage chan *ServiceMessage

	logger *zap.Logger
}

var (
	upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

func (c *Conn) WriteJSON(v any) error {
	c.Lock()
	err := c.Conn.WriteJSON(v)
	c.Unlock()

	if err != nil {
		c.logger.Warn("websocket write failed", zap.Error(err))
	}
	return err
}

// NewConn upgrades the request and prepares the message channel.
func NewConn(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil, err
	}

	result := &Conn{
		Conn:        conn,
		Mutex:       new(sync.Mutex),
		TextMessage: make(chan *ServiceMessage, 10),
		logger:      logger,
	}

	return result, nil
}

// StartDispatch reads messages into TextMessage until the read fails. Binary
// frames are not part of the protocol and are dropped.
func (c *Conn) StartDispatch() error {
	defer close(c.TextMessage)
	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			return err
		}

		if msgType == ws.BinaryMessage {
			c.logger.Debug("dropping binary frame", zap.Int("size", len(data)))
			continue
		}

		var msg ServiceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("error unmarshalling message", zap.Error(err))
			continue
		}
		c.TextMessage <- &msg
	}
}
