package telnet

import (
	"io"
	"net"
	"sync"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// ReaderMode selects how the inbound byte stream is driven: Threaded runs a
// dedicated goroutine pulling from the transport into a bounded ring
// buffer; Inline drives the state machine synchronously inside Read, with
// no background goroutine.
type ReaderMode int

const (
	Threaded ReaderMode = iota
	Inline
)

// Connection wraps a net.Conn with Telnet IAC processing: it separates
// data bytes from command/negotiation/subnegotiation sequences, negotiates
// options via RFC 1143 Q-method, and exposes the remaining data stream
// through Read/Write like any other net.Conn.
type Connection struct {
	conn net.Conn
	mode ReaderMode

	negotiator *Negotiator
	sm         *StateMachine
	ring       *ringBuffer

	// writeMu serializes option-negotiation replies against application
	// writes, so a negotiation reply can never interleave mid-write.
	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool

	// OnCommand, if set, is invoked for simple IAC commands carrying no
	// option (NOP, AYT, IP, AO, BRK, ...).
	OnCommand func(cmd byte)
}

// NewConnection wraps conn for Telnet processing. In Threaded mode a reader
// goroutine starts immediately; in Inline mode the caller's own Read calls
// drive the state machine.
func NewConnection(conn net.Conn, mode ReaderMode) *Connection {
	c := &Connection{
		conn: conn,
		mode: mode,
		ring: newRingBuffer(RingBufferCapacity),
	}
	c.negotiator = NewNegotiator(c.sendNegotiation)
	c.sm = NewStateMachine(
		func(b byte) { c.ring.Push(b) },
		c.negotiator,
		c.handleCommand,
		c.handleSubnegotiation,
		func() bool { return c.negotiator.IsRemoteEnabled(TransmitBinary) },
	)

	if mode == Threaded {
		go c.readLoop()
	}
	return c
}

// RegisterOption installs h as the policy for option, starting negotiation
// immediately if h requests an initial state.
func (c *Connection) RegisterOption(option byte, h OptionHandler) {
	c.negotiator.Register(option, h)
}

func (c *Connection) handleCommand(cmd byte) {
	if c.OnCommand != nil {
		c.OnCommand(cmd)
		return
	}
	if cmd == AYT {
		c.writeMu.Lock()
		_, _ = c.conn.Write([]byte("\r\n[Yes]\r\n"))
		c.writeMu.Unlock()
	}
}

func (c *Connection) handleSubnegotiation(option byte, data []byte) {
	if h, ok := c.negotiator.handlers[option]; ok {
		h.AnswerSubnegotiation(data)
	}
}

func (c *Connection) sendNegotiation(cmd, option byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, _ = c.conn.Write([]byte{IAC, cmd, option})

	if cmd == DO || cmd == WILL {
		if h, ok := c.negotiator.handlers[option]; ok {
			h.StartSubnegotiationLocal()
		}
	}
}

// readLoop is the Threaded mode's dedicated goroutine: it pulls raw bytes
// from the transport and feeds them through the state machine until the
// transport errors or the connection is closed.
func (c *Connection) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		for i := 0; i < n; i++ {
			c.sm.Feed(buf[i])
		}
		if err != nil {
			if err == io.EOF {
				c.ring.SetEOF()
			} else {
				c.ring.SetErr(err)
			}
			return
		}
	}
}

// Read implements io.Reader, returning decoded data bytes with all IAC
// sequences removed and processed.
func (c *Connection) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.closeMu.Lock()
	closed := c.closed
	c.closeMu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	if c.mode == Inline {
		if err := c.fillInline(); err != nil && c.ring.Len() == 0 {
			return 0, err
		}
	}

	b, err := c.ring.Pop()
	if err != nil {
		return 0, err
	}
	p[0] = b
	n := 1
	for n < len(p) {
		if c.ring.Len() == 0 {
			break
		}
		b, err := c.ring.Pop()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// fillInline drives the state machine against the underlying transport
// until at least one data byte is queued or the transport would block/EOF.
// It never blocks past what reading the transport itself blocks on, and it
// never runs as a side effect of anything but Read. Each read is at most
// RingBufferCapacity bytes and only happens while the ring is empty, so
// the decoded data always fits without blocking on Push.
func (c *Connection) fillInline() error {
	buf := make([]byte, RingBufferCapacity)
	for c.ring.Len() == 0 {
		n, err := c.conn.Read(buf)
		for i := 0; i < n; i++ {
			c.sm.Feed(buf[i])
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

// Write escapes any IAC byte in p (doubling it) and sends it as ordinary
// data, serialized against negotiation replies.
func (c *Connection) Write(p []byte) (int, error) {
	c.closeMu.Lock()
	closed := c.closed
	c.closeMu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	out := make([]byte, 0, len(p))
	for _, b := range p {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	if _, err := c.conn.Write(out); err != nil {
		return 0, neterr.New(neterr.Io, "telnet write", err)
	}
	return len(p), nil
}

// SendSubnegotiation sends IAC SB option data... IAC SE, escaping any IAC
// byte within data.
func (c *Connection) SendSubnegotiation(option byte, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	out := make([]byte, 0, len(data)+5)
	out = append(out, IAC, SB, option)
	for _, b := range data {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	out = append(out, IAC, SE)
	_, err := c.conn.Write(out)
	return err
}

// RequestWill asks to enable option on our own side.
func (c *Connection) RequestWill(option byte) { c.negotiator.RequestWill(option) }

// RequestDo asks the peer to enable option.
func (c *Connection) RequestDo(option byte) { c.negotiator.RequestDo(option) }

// IsRemoteEnabled reports whether the peer currently drives option.
func (c *Connection) IsRemoteEnabled(option byte) bool { return c.negotiator.IsRemoteEnabled(option) }

// IsLocalEnabled reports whether we currently drive option.
func (c *Connection) IsLocalEnabled(option byte) bool { return c.negotiator.IsLocalEnabled(option) }

// RemoteAddr returns the underlying transport's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close is idempotent: repeated calls succeed without error. It unblocks
// any Threaded reader goroutine and any caller blocked on Read.
func (c *Connection) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.ring.Close()
	return c.conn.Close()
}
