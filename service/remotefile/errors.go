package remotefile

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned by a Connection once it has been closed.
var ErrConnectionClosed = errors.New("connection is closed")

var (
	errNoDestination   = errors.New("no destination")
	errNotRemote       = errors.New("destination is not a file on a remote connection")
	errOtherConnection = errors.New("destination belongs to a different connection")
	errStreamClosed    = errors.New("stream is closed")
)

// Kind classifies an Error.
type Kind int

const (
	// KindRemote is a failure reported by the remote side: no such file,
	// permission denied, and so on.
	KindRemote Kind = iota + 1
	// KindConnectivity means the channel or the session behind it is unusable.
	KindConnectivity
	// KindRenameRejected is a rename between handles that do not share a
	// connection. No remote call is made.
	KindRenameRejected
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote operation failed"
	case KindConnectivity:
		return "connectivity lost"
	case KindRenameRejected:
		return "rename rejected"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by remote file operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	// Dest is only set for renames.
	Dest string
	Err  error
}

func (e *Error) Error() string {
	msg := "cannot " + e.Op + " " + e.Path
	if e.Dest != "" {
		msg += " to " + e.Dest
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// channelError tags a raw channel failure with the side it came from.
type channelError struct {
	kind Kind
	err  error
}

func (e *channelError) Error() string { return e.err.Error() }
func (e *channelError) Unwrap() error { return e.err }

// ProtocolError marks err as reported by the remote side of a channel.
// Channel implementations use it at the call site of each primitive.
func ProtocolError(err error) error {
	if err == nil {
		return nil
	}
	return &channelError{kind: KindRemote, err: err}
}

// TransportError marks err as a failure of the channel itself.
func TransportError(err error) error {
	if err == nil {
		return nil
	}
	return &channelError{kind: KindConnectivity, err: err}
}

// kindOf reports the side a channel failure came from. Untagged failures
// count as transport failures so they are never mistaken for a missing file.
func kindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var ce *channelError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return KindConnectivity
}

// normalize wraps a failure of op on path into an *Error. It returns nil
// for a nil err.
func normalize(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: kindOf(err), Op: op, Path: path, Err: unwrapTag(err)}
}

func unwrapTag(err error) error {
	if ce, ok := err.(*channelError); ok {
		return ce.err
	}
	return err
}

func kindIs(err error, k Kind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == k
}

// IsTransportFailure reports whether a raw channel failure, tagged or not,
// means the channel is unusable.
func IsTransportFailure(err error) bool {
	return err != nil && kindOf(err) == KindConnectivity
}

// IsRemote reports whether err is a failure reported by the remote side.
func IsRemote(err error) bool { return kindIs(err, KindRemote) }

// IsConnectivity reports whether err means the connection is unusable.
func IsConnectivity(err error) bool { return kindIs(err, KindConnectivity) }

// IsRenameRejected reports whether err is a refused cross-connection rename.
func IsRenameRejected(err error) bool { return kindIs(err, KindRenameRejected) }
