package fs

import (
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"remotefs/utils"
	ws "remotefs/websocket"
)

const (
	actionList     = "list"
	actionRoot     = "get_root"
	actionRename   = "rename"
	actionCreate   = "create"
	actionMakeDirs = "mkdirs"
	actionDelete   = "delete"
	actionCopy     = "copy"
	actionMove     = "move"
	actionRead     = "read"
	actionChunk    = "read_chunk"
)

const readChunkSize = 32 * 1024

type listData struct {
	// req
	ShowHidden bool `json:"showHidden,omitempty"`
	// res
	Entries []*FileSystemEntry `json:"entries"`
}
type renameData struct {
	NewName string `json:"newName"`
}
type createData struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}
type copyData struct {
	Dest string `json:"dest"`
}
type moveData struct {
	Dest string `json:"dest"`
}

type messageWriter interface {
	WriteJSON(v any) error
}

type FSService struct {
	conn messageWriter

	FS FileSystem
	*zap.Logger
}

func NewService(fs FileSystem, logger *zap.Logger) *FSService {
	return &FSService{FS: fs, Logger: logger.Named("fs")}
}

// NewRemoteService serves the files of one remote connection, starting
// from the root directory of its host.
func NewRemoteService(files Files, logger *zap.Logger) *FSService {
	return NewService(NewRemoteFileSystem(files, RootFor(files.HostOS()), logger), logger)
}

// Register implements websocket.Service.
func (s *FSService) Register(conn *ws.Conn) {
	s.conn = conn
}

func (s *FSService) Name() string {
	return "fs"
}

func (s *FSService) HandleTextMessage(id, action string, data json.RawMessage) {
	switch action {
	case actionList:
		go s.handleList(id, data)
	case actionRoot:
		go s.handleGetRoot(id)
	case actionRename:
		go s.handleRename(id, data)
	case actionCreate:
		go s.handleCreate(id, data)
	case actionMakeDirs:
		go s.handleMakeDirs(id)
	case actionDelete:
		go s.handleDelete(id)
	case actionCopy:
		go s.handleCopy(id, data)
	case actionMove:
		go s.handleMove(id, data)
	case actionRead:
		go s.handleRead(id)
	default:
		s.Debug("unknown action", zap.String("action", action))
	}
}

func (s *FSService) Cleanup(err error) {}

// reply acknowledges action on id, or reports err.
func (s *FSService) reply(id, action string, err error) {
	if err != nil {
		s.handleError(id, action, err)
		return
	}

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
	})
}

// handleRead sends the content of a file as base64 chunks, then an empty
// read reply once the whole file went out.
func (s *FSService) handleRead(id string) {
	r, err := s.FS.Open(id)
	if err != nil {
		s.handleError(id, actionRead, err)
		return
	}
	defer r.Close()

	w := &utils.WebsocketWriter{
		Service: s.Name(),
		Id:      id,
		Action:  actionChunk,
		Conn:    s.conn,
		Transformer: func(p []byte) []byte {
			data, _ := json.Marshal(p)
			return data
		},
	}
	_, err = io.CopyBuffer(w, r, make([]byte, readChunkSize))
	s.reply(id, actionRead, err)
}

func (s *FSService) handleMakeDirs(id string) {
	s.reply(id, actionMakeDirs, s.FS.MakeDirs(id))
}

func (s *FSService) handleDelete(id string) {
	s.reply(id, actionDelete, s.FS.Delete(id))
}

func (s *FSService) handleMove(id string, data json.RawMessage) {
	var d moveData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Warn("error unmarshalling fs move payload", zap.Error(err))
		return
	}

	s.reply(id, actionMove, s.FS.Move(id, d.Dest))
}

func (s *FSService) handleCopy(id string, data json.RawMessage) {
	var d copyData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Warn("error unmarshalling fs copy payload", zap.Error(err))
		return
	}

	s.reply(id, actionCopy, s.FS.Copy(id, d.Dest))
}

func (s *FSService) handleCreate(id string, data json.RawMessage) {
	var d createData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Warn("error unmarshalling fs create payload", zap.Error(err))
		return
	}

	s.reply(id, actionCreate, s.FS.Create(id, d.Name, d.IsDir))
}

func (s *FSService) handleRename(id string, data json.RawMessage) {
	var d renameData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Warn("error unmarshalling fs rename payload", zap.Error(err))
		return
	}

	s.reply(id, actionRename, s.FS.Rename(id, d.NewName))
}

func (s *FSService) handleList(id string, data json.RawMessage) {
	var d listData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d); err != nil {
			s.Warn("error unmarshalling fs list payload", zap.Error(err))
			return
		}
	}

	entries, err := s.FS.List(id, d.ShowHidden)
	if err != nil {
		s.handleError(id, actionList, err)
		return
	}

	d.Entries = entries

	r, err := json.Marshal(d)
	if err != nil {
		s.Error("error marshalling list response", zap.Error(err))
		return
	}

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  actionList,
		Data:    r,
	})
}

func (s *FSService) handleGetRoot(id string) {
	root, err := s.FS.GetRoot()
	if err != nil {
		s.handleError(id, actionRoot, err)
		return
	}

	r, err := json.Marshal(root)
	if err != nil {
		s.Error("error marshalling root response", zap.Error(err))
		return
	}

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  actionRoot,
		Data:    r,
	})
}

func (s *FSService) handleError(id, action string, err error) {
	s.Warn("fs action failed", zap.String("action", action), zap.String("path", id), zap.Error(err))

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
		Error:   err.Error(),
	})
}
