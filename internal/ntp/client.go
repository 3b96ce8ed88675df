package ntp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// DefaultPort is the standard NTP service port.
const DefaultPort = 123

// Client queries NTP time servers over UDP and returns the resulting
// TimeInfo with delay/offset already computed.
type Client struct {
	Clock   Clock
	Timeout time.Duration
	Version uint8
}

// NewClient returns a Client with the system clock, NTPv3 framing, and a
// 5 second reply timeout.
func NewClient() *Client {
	return &Client{
		Clock:   SystemClock{},
		Timeout: 5 * time.Second,
		Version: 3,
	}
}

// Query sends a single client-mode request to addr (host or host:port,
// DefaultPort assumed when no port is given) and returns the resulting
// TimeInfo. The context governs the read deadline in addition to the
// Client's own Timeout, whichever elapses first.
func (c *Client) Query(ctx context.Context, addr string) (*TimeInfo, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, fmt.Sprintf("%d", DefaultPort)
	}

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, neterr.New(neterr.InvalidArgument, "resolve NTP server address", err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, neterr.New(neterr.Io, "dial NTP server", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, neterr.New(neterr.Io, "set NTP deadline", err)
	}

	originMillis := NowMillis(c.Clock)
	request := &Packet{
		LeapIndicator: LeapNotSynchronized,
		Version:       c.Version,
		Mode:          ModeClient,
		TransmitTime:  FromUnixMillis(originMillis),
	}
	wire := request.Marshal()
	if _, err := conn.Write(wire[:]); err != nil {
		return nil, neterr.New(neterr.Io, "send NTP request", err)
	}

	buf := make([]byte, PacketSize)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, neterr.New(neterr.Timeout, "waiting for NTP reply", err)
		}
		return nil, neterr.New(neterr.Io, "read NTP reply", err)
	}

	destMillis := NowMillis(c.Clock)
	reply, err := UnmarshalPacket(buf[:n])
	if err != nil {
		return nil, err
	}
	if reply.OriginTime.IsZero() {
		reply.OriginTime = FromUnixMillis(originMillis)
	}

	message := &Message{Packet: reply, Peer: conn.RemoteAddr()}
	return NewTimeInfo(message, destMillis)
}
