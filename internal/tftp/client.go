package tftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

// DefaultMaxTimeouts is the number of consecutive reply timeouts after
// which a transfer gives up.
const DefaultMaxTimeouts = 5

// Client drives one TFTP transfer at a time: a request, followed by a
// lockstep DATA/ACK exchange, with the remote transfer-ID bound from the
// first reply and re-verified on every subsequent datagram.
type Client struct {
	// Timeout bounds how long a single reply is awaited before a retry.
	Timeout time.Duration
	// MaxTimeouts is the number of consecutive reply timeouts that ends a
	// transfer (so at most MaxTimeouts-1 retries are sent); values below 1
	// are treated as 1.
	MaxTimeouts int
	// OnProgress, if set, is called after every block is transferred with
	// the running total byte count.
	OnProgress func(total int64)

	// bytesTransferred tracks the current transfer's running total so a
	// concurrent caller can poll BytesTransferred() mid-transfer, the way
	// the original TFTPClient's totalBytesSent/totalBytesReceived do.
	bytesTransferred int64
}

// NewClient returns a Client with a 5 second per-reply timeout and the
// default retry budget.
func NewClient() *Client {
	return &Client{Timeout: 5 * time.Second, MaxTimeouts: DefaultMaxTimeouts}
}

// BytesTransferred reports the number of bytes moved by the Client's
// current or most recently completed Send/Receive call. Safe to call
// concurrently with an in-flight transfer.
func (c *Client) BytesTransferred() int64 {
	return atomic.LoadInt64(&c.bytesTransferred)
}

func (c *Client) maxTimeouts() int {
	if c.MaxTimeouts < 1 {
		return 1
	}
	return c.MaxTimeouts
}

func (c *Client) report(total int64) {
	atomic.StoreInt64(&c.bytesTransferred, total)
	if c.OnProgress != nil {
		c.OnProgress(total)
	}
}

// Receive issues an RRQ for remoteFile against addr ("host" or "host:port",
// defaulting to DefaultPort) and copies the file's contents to w, returning
// the number of bytes written.
func (c *Client) Receive(ctx context.Context, addr, remoteFile string, mode Mode, w io.Writer) (int64, error) {
	atomic.StoreInt64(&c.bytesTransferred, 0)

	conn, remoteAddr, err := c.dial(addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	out := w
	var decoder *netASCIIDecoder
	if mode == ModeNetASCII {
		decoder = newNetASCIIDecoder(w)
		out = decoder
	}

	if err := c.writeTo(conn, remoteAddr, MarshalRequest(&RequestPacket{Opcode: OpRRQ, Filename: remoteFile, Mode: mode})); err != nil {
		return 0, err
	}

	var (
		tid       *net.UDPAddr
		firstSeen = true
		lastBlock uint16
		total     int64
		timeouts  int
	)

	buf := make([]byte, 4+SegmentSize)
	for {
		if err := ctx.Err(); err != nil {
			return total, neterr.New(neterr.Timeout, "receive cancelled", err)
		}
		conn.SetReadDeadline(deadline(ctx, c.Timeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				timeouts++
				if timeouts >= c.maxTimeouts() {
					return total, neterr.New(neterr.Timeout, "TFTP receive: retry budget exhausted", nil)
				}
				target := remoteAddr
				if tid != nil {
					target = tid
				}
				if tid == nil {
					_ = c.writeTo(conn, target, MarshalRequest(&RequestPacket{Opcode: OpRRQ, Filename: remoteFile, Mode: mode}))
				} else {
					_ = c.writeTo(conn, target, MarshalAck(&AckPacket{Block: lastBlock}))
				}
				continue
			}
			return total, neterr.New(neterr.Io, "TFTP receive", err)
		}
		timeouts = 0

		pkt, err := Unmarshal(buf[:n])
		if err != nil {
			continue
		}

		if firstSeen {
			if from.Port == remoteAddr.Port {
				_ = c.writeTo(conn, from, MarshalError(&ErrorPacket{Code: ErrUnknownTID, Message: "incorrect source port"}))
				return total, neterr.New(neterr.Protocol, "TFTP receive: server replied from its well-known port instead of a fresh TID", nil)
			}
			tid = from
			firstSeen = false
		} else if !sameAddr(from, tid) {
			_ = c.writeTo(conn, from, MarshalError(&ErrorPacket{Code: ErrUnknownTID, Message: "unexpected transfer ID"}))
			continue
		}

		switch pkt.Opcode {
		case OpDATA:
			d := pkt.Data
			switch {
			case d.Block == lastBlock+1:
				if _, err := out.Write(d.Data); err != nil {
					return total, neterr.New(neterr.Io, "TFTP receive: write to destination", err)
				}
				total += int64(len(d.Data))
				lastBlock = d.Block
				c.report(total)
				if err := c.writeTo(conn, tid, MarshalAck(&AckPacket{Block: lastBlock})); err != nil {
					return total, err
				}
				if len(d.Data) < SegmentSize {
					if decoder != nil {
						if err := decoder.Flush(); err != nil {
							return total, neterr.New(neterr.Io, "TFTP receive: flush", err)
						}
					}
					return total, nil
				}
			case d.Block == lastBlock:
				_ = c.writeTo(conn, tid, MarshalAck(&AckPacket{Block: lastBlock}))
			}
		case OpERROR:
			return total, &RemoteError{Code: pkt.Error.Code, Message: pkt.Error.Message}
		}
	}
}

// Send issues a WRQ for remoteFile against addr and copies r's contents to
// the server, returning the number of bytes sent.
func (c *Client) Send(ctx context.Context, addr, remoteFile string, mode Mode, r io.Reader) (int64, error) {
	atomic.StoreInt64(&c.bytesTransferred, 0)

	conn, remoteAddr, err := c.dial(addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	in := r
	if mode == ModeNetASCII {
		in = newNetASCIIReader(r)
	}

	if err := c.writeTo(conn, remoteAddr, MarshalRequest(&RequestPacket{Opcode: OpWRQ, Filename: remoteFile, Mode: mode})); err != nil {
		return 0, err
	}

	var (
		tid             *net.UDPAddr
		firstSeen       = true
		block           uint16
		inFlightRequest = true
		data            []byte
		total           int64
		timeouts        int
	)

	buf := make([]byte, 4+SegmentSize)
	for {
		if err := ctx.Err(); err != nil {
			return total, neterr.New(neterr.Timeout, "send cancelled", err)
		}
		conn.SetReadDeadline(deadline(ctx, c.Timeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				timeouts++
				if timeouts >= c.maxTimeouts() {
					return total, neterr.New(neterr.Timeout, "TFTP send: retry budget exhausted", nil)
				}
				target := remoteAddr
				if tid != nil {
					target = tid
				}
				if inFlightRequest {
					_ = c.writeTo(conn, target, MarshalRequest(&RequestPacket{Opcode: OpWRQ, Filename: remoteFile, Mode: mode}))
				} else {
					_ = c.writeTo(conn, target, MarshalData(&DataPacket{Block: block, Data: data}))
				}
				continue
			}
			return total, neterr.New(neterr.Io, "TFTP send", err)
		}
		timeouts = 0

		pkt, err := Unmarshal(buf[:n])
		if err != nil {
			continue
		}

		if firstSeen {
			if from.Port == remoteAddr.Port {
				_ = c.writeTo(conn, from, MarshalError(&ErrorPacket{Code: ErrUnknownTID, Message: "incorrect source port"}))
				return total, neterr.New(neterr.Protocol, "TFTP send: server replied from its well-known port instead of a fresh TID", nil)
			}
			tid = from
			firstSeen = false
		} else if !sameAddr(from, tid) {
			_ = c.writeTo(conn, from, MarshalError(&ErrorPacket{Code: ErrUnknownTID, Message: "unexpected transfer ID"}))
			continue
		}

		switch pkt.Opcode {
		case OpACK:
			ack := pkt.Ack
			switch {
			case ack.Block == block:
				if !inFlightRequest {
					total += int64(len(data))
					c.report(total)
					if len(data) < SegmentSize {
						return total, nil
					}
				}
				inFlightRequest = false
				block++
				data, err = readChunk(in)
				if err != nil {
					return total, neterr.New(neterr.Io, "TFTP send: read source", err)
				}
				if err := c.writeTo(conn, tid, MarshalData(&DataPacket{Block: block, Data: data})); err != nil {
					return total, err
				}
			case !inFlightRequest && ack.Block == block-1:
				_ = c.writeTo(conn, tid, MarshalData(&DataPacket{Block: block, Data: data}))
			}
		case OpERROR:
			return total, &RemoteError{Code: pkt.Error.Code, Message: pkt.Error.Message}
		}
	}
}

func (c *Client) dial(addr string) (*net.UDPConn, *net.UDPAddr, error) {
	host, port, err := splitHostPort(addr, DefaultPort)
	if err != nil {
		return nil, nil, neterr.New(neterr.InvalidArgument, "invalid TFTP address", err)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, nil, neterr.New(neterr.Io, "resolve TFTP server address", err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, nil, neterr.New(neterr.Io, "open TFTP client socket", err)
	}
	return conn, remoteAddr, nil
}

func (c *Client) writeTo(conn *net.UDPConn, addr *net.UDPAddr, datagram []byte) error {
	if _, err := conn.WriteToUDP(datagram, addr); err != nil {
		return neterr.New(neterr.Io, "TFTP write", err)
	}
	return nil
}

func readChunk(r io.Reader) ([]byte, error) {
	buf := make([]byte, SegmentSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a != nil && b != nil && a.Port == b.Port && a.IP.Equal(b.IP)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
