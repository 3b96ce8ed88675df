package tftp

import "github.com/GiacomoTortora/commons-net/internal/neterr"

var (
	// ErrMaxTimeouts is returned when a transfer exhausts its retry budget
	// without a reply.
	ErrMaxTimeouts = neterr.Sentinel(neterr.Timeout)
	// ErrRemoteError is returned when the peer sends back an ERROR packet.
	ErrRemoteError = neterr.Sentinel(neterr.Peer)
	// ErrPathEscape is returned by the server when a requested filename
	// would resolve outside its root directory.
	ErrPathEscape = neterr.Sentinel(neterr.Policy)
)

// RemoteError carries the ErrorCode/Message a peer sent back, alongside
// ErrRemoteError so callers can still match it with errors.Is.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return "TFTP peer error " + errorCodeString(e.Code) + ": " + e.Message
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteError
}

func errorCodeString(c ErrorCode) string {
	switch c {
	case ErrNotDefined:
		return "not defined"
	case ErrFileNotFound:
		return "file not found"
	case ErrAccessViolation:
		return "access violation"
	case ErrDiskFull:
		return "disk full"
	case ErrIllegalOperation:
		return "illegal operation"
	case ErrUnknownTID:
		return "unknown transfer ID"
	case ErrFileExists:
		return "file already exists"
	case ErrNoSuchUser:
		return "no such user"
	default:
		return "unknown"
	}
}
