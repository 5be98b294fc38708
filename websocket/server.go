package websocket

import (
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	*Conn
	services map[string]Service

	timeout        time.Duration
	lastActiveTime atomic.Int64
	activeServices []string
	logger         *zap.Logger
}

// checkTimeout closes the connection once no active service has seen a
// message for longer than the timeout.
func (s *Server) checkTimeout(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second * 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if time.Since(time.UnixMilli(s.lastActiveTime.Load())) > s.timeout {
				s.logger.Info("websocket idle, closing", zap.Duration("timeout", s.timeout))
				s.Close()
				return
			}
		}
	}
}

// Register adds a service whose messages keep the connection alive.
func (s *Server) Register(service Service) {
	s.RegisterPassive(service)
	s.activeServices = append(s.activeServices, service.Name())
}

// RegisterPassive adds a service whose messages do not count as activity.
func (s *Server) RegisterPassive(service Service) {
	if _, exists := s.services[service.Name()]; exists {
		s.logger.Warn("service already registered", zap.String("service", service.Name()))
		return
	}

	service.Register(s.Conn)
	s.services[service.Name()] = service
}

func (s *Server) touch() {
	s.lastActiveTime.Store(time.Now().UnixMilli())
}

// Start serves the connection and blocks until it is closed.
func (s *Server) Start() {
	done := make(chan struct{})
	go s.checkTimeout(done)

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		for msg := range s.TextMessage {
			if slices.Contains(s.activeServices, msg.Service) {
				s.touch()
			}
			if svc, exists := s.services[msg.Service]; exists {
				svc.HandleTextMessage(msg.Id, msg.Action, msg.Data)
			} else {
				s.logger.Debug("message for unknown service", zap.String("service", msg.Service))
			}
		}
	}()

	err := s.StartDispatch()
	<-handled
	close(done)
	s.logger.Debug("websocket closed", zap.Error(err))
	for _, svc := range s.services {
		svc.Cleanup(err)
	}
}

func NewServer(w http.ResponseWriter, r *http.Request, timeout time.Duration, logger *zap.Logger) (*Server, error) {
	conn, err := NewConn(w, r, logger)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Conn:     conn,
		services: make(map[string]Service),
		timeout:  timeout,
		logger:   logger,
	}
	server.touch()

	return server, nil
}
