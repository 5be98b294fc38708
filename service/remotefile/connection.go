package remotefile

import (
	"io"
	"os"

	"go.uber.org/zap"

	"remotefs/service/pathconv"
)

// Channel is one open file transfer channel. It serves a single request at a
// time. Implementations report failures through ProtocolError and
// TransportError.
type Channel interface {
	Stat(path string) (os.FileInfo, error)
	// ReadDir may include the "." and ".." entries.
	ReadDir(path string) ([]os.FileInfo, error)
	Mkdir(path string) error
	Remove(path string) error
	RemoveDirectory(path string) error
	Rename(oldPath, newPath string) error
	OpenRead(path string) (io.ReadCloser, error)
	OpenWrite(path string) (io.WriteCloser, error)
	Close() error
}

// Connection is what a File needs from the connection it belongs to.
type Connection interface {
	// ID identifies the connection. Two handles may only be renamed onto each
	// other when their connection ids are equal.
	ID() string
	HostOS() pathconv.Family
	Logger() *zap.Logger

	// WithSharedChannel runs fn with exclusive use of the shared channel and
	// returns its error. It blocks while another caller holds the channel.
	WithSharedChannel(fn func(Channel) error) error

	// OpenDedicatedChannel opens a channel owned by the caller, who must
	// close it.
	OpenDedicatedChannel(forWrite bool) (Channel, error)
}
