package telnet

import "github.com/GiacomoTortora/commons-net/internal/neterr"

// ErrClosed is returned by Read/Write once the Connection has been closed.
var ErrClosed = neterr.Sentinel(neterr.Closed)
