package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"remotefs/controller"
	"remotefs/logging"
	"remotefs/metrics"
)

type Server struct {
	*http.Server
	sftp   *controller.SFTPController
	logger *zap.Logger
}

// NewEngine builds the router with every route of the service.
func NewEngine(logger *zap.Logger) (*gin.Engine, *controller.SFTPController) {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	sftp := controller.SetupRoutes(r, logger)
	return r, sftp
}

func New(port uint, logger *zap.Logger) *Server {
	engine, sftp := NewEngine(logger)
	return &Server{
		Server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: engine,
		},
		sftp:   sftp,
		logger: logger,
	}
}

// Start listens in the background. The returned channel yields the error
// that stopped the listener, or nil after Shutdown.
func (s *Server) Start() chan error {
	finishChan := make(chan error, 1)
	go func() {
		err := s.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		finishChan <- err
	}()
	s.logger.Info("started", zap.String("addr", s.Addr))
	return finishChan
}

// Shutdown stops accepting requests and closes every remote connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.sftp.CloseAll()
	return err
}
