package ntp

import "github.com/GiacomoTortora/commons-net/internal/neterr"

// Sentinel errors for the ntp package, matched with errors.Is.
var (
	ErrShortPacket = neterr.Sentinel(neterr.Protocol)
	ErrTimeout     = neterr.Sentinel(neterr.Timeout)
	ErrNilMessage  = neterr.Sentinel(neterr.InvalidArgument)
)
