package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"remotefs/config"
	"remotefs/metrics"
	"remotefs/service/downloader"
	"remotefs/service/pathconv"
	"remotefs/service/remotefile"
	"remotefs/service/sftpconn"
	"remotefs/websocket"
	"remotefs/websocket/service/fs"
	"remotefs/websocket/service/heartbeat"
)

type SFTPController struct {
	Conns map[string]*sftpconn.Connection
	*sync.RWMutex

	logger *zap.Logger
}

func NewSFTPController(logger *zap.Logger) *SFTPController {
	return &SFTPController{
		Conns:   make(map[string]*sftpconn.Connection),
		RWMutex: &sync.RWMutex{},
		logger:  logger,
	}
}

type sshInfo struct {
	Host     string `json:"host" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Port     int    `json:"port"`
	// HostOS is unix, windows or zos. Defaults to the configured family.
	HostOS string `json:"hostOS"`
}

// Add makes conn reachable under its id.
func (sc *SFTPController) Add(conn *sftpconn.Connection) string {
	sc.Lock()
	sc.Conns[conn.ID()] = conn
	count := len(sc.Conns)
	sc.Unlock()

	metrics.SetConnectionsActive(count)
	return conn.ID()
}

func (sc *SFTPController) Login(c *gin.Context) {
	var info sshInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if info.Port == 0 {
		info.Port = config.Cfg.DefaultSSHPort
	}
	if info.Port == 0 {
		info.Port = 22
	}
	if info.HostOS == "" {
		info.HostOS = config.Cfg.HostOS
	}
	family, err := pathconv.ParseFamily(info.HostOS)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientConfig := &ssh.ClientConfig{
		User:            info.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(info.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Note: In production, use proper host key verification
		Timeout:         config.Cfg.ConnectionTimeout,
	}

	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	conn, err := sftpconn.Dial("tcp", addr, clientConfig, sc.connOptions(family, addr)...)
	if err != nil {
		sc.logger.Warn("ssh login failed", zap.String("addr", addr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id := sc.Add(conn)
	sc.logger.Info("ssh login", zap.String("addr", addr), zap.String("conn", id))
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (sc *SFTPController) connOptions(family pathconv.Family, addr string) []sftpconn.Option {
	opts := []sftpconn.Option{
		sftpconn.WithHostOS(family),
		sftpconn.WithLogger(sc.logger.With(zap.String("addr", addr))),
	}
	if config.Cfg.SFTPMaxPacket > 0 {
		opts = append(opts, sftpconn.WithClientOptions(sftp.MaxPacket(config.Cfg.SFTPMaxPacket)))
	}
	return opts
}

func (sc *SFTPController) connection(c *gin.Context) (*sftpconn.Connection, bool) {
	sc.RLock()
	conn, exists := sc.Conns[c.Param("id")]
	sc.RUnlock()

	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid SFTP connection ID"})
	}
	return conn, exists
}

// statusOf maps a remote file error to an HTTP status.
func statusOf(err error) int {
	switch {
	case remotefile.IsConnectivity(err):
		return http.StatusBadGateway
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrPermission):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (sc *SFTPController) fail(c *gin.Context, err error) {
	sc.logger.Warn("request failed", zap.String("url", c.Request.URL.String()), zap.Error(err))
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

// StartFS serves the file browser of a connection over a websocket.
func (sc *SFTPController) StartFS(c *gin.Context) {
	conn, ok := sc.connection(c)
	if !ok {
		return
	}

	wsServer, err := websocket.NewServer(c.Writer, c.Request, config.Cfg.ConnectionTimeout, conn.Logger())
	if err != nil {
		// the upgrader has already answered
		return
	}

	wsServer.Register(fs.NewRemoteService(conn, conn.Logger()))
	wsServer.RegisterPassive(heartbeat.NewService())

	wsServer.Start()
}

type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n += int64(n)
	return n, err
}

// Download streams a file, or a directory as a zip archive.
func (sc *SFTPController) Download(c *gin.Context) {
	conn, ok := sc.connection(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	f := conn.File(path)
	info, err := downloader.Stat(f)
	if err != nil {
		sc.fail(c, err)
		return
	}

	var (
		r           io.ReadCloser
		size        = info.Size
		contentType = "application/octet-stream"
		filename    = info.Name
	)
	if info.IsDir {
		r, _, err = downloader.DownloadDir(f)
		size = -1
		contentType = "application/zip"
		filename += ".zip"
	} else {
		r, _, err = downloader.Download(f)
	}
	if err != nil {
		sc.fail(c, err)
		return
	}
	defer r.Close()

	counter := &countingReader{Reader: r}
	c.DataFromReader(http.StatusOK, size, contentType, counter, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
	metrics.RecordDownload(counter.n)
}

func (sc *SFTPController) Upload(c *gin.Context) {
	conn, ok := sc.connection(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	w, err := conn.File(path).OpenWriter(c.Request.ContentLength)
	if err != nil {
		sc.fail(c, err)
		return
	}

	n, err := io.Copy(w, c.Request.Body)
	if err != nil {
		w.Close()
		sc.fail(c, err)
		return
	}
	if err := w.Close(); err != nil {
		sc.fail(c, err)
		return
	}

	metrics.RecordUpload(n)
	c.JSON(http.StatusOK, gin.H{"size": n})
}

func (sc *SFTPController) Logout(c *gin.Context) {
	conn, ok := sc.connection(c)
	if !ok {
		return
	}

	sc.Lock()
	delete(sc.Conns, conn.ID())
	count := len(sc.Conns)
	sc.Unlock()
	metrics.SetConnectionsActive(count)

	if err := conn.Close(); err != nil {
		sc.logger.Warn("error closing connection", zap.String("conn", conn.ID()), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// CloseAll closes every open connection.
func (sc *SFTPController) CloseAll() {
	sc.Lock()
	conns := sc.Conns
	sc.Conns = make(map[string]*sftpconn.Connection)
	sc.Unlock()
	metrics.SetConnectionsActive(0)

	for _, conn := range conns {
		conn.Close()
	}
}
