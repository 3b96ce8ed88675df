package tftp

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
	"github.com/dustin/go-humanize"
)

// AccessMode restricts which requests a Server will honor.
type AccessMode int

const (
	ReadWrite AccessMode = iota
	ReadOnly
	WriteOnly
)

// Server answers RRQ/WRQ requests rooted at a single directory, spawning one
// goroutine per accepted transfer so concurrent clients don't block each
// other.
type Server struct {
	// Timeout bounds how long a transfer goroutine waits for the next
	// datagram before resending its last packet.
	Timeout time.Duration
	// MaxTimeouts bounds retries per in-flight transfer.
	MaxTimeouts int
	// Log receives a record for each request rejected by the path check,
	// each transfer that ends in error and each completed transfer; a nil
	// Log discards them.
	Log *slog.Logger

	// rootMu guards root/mode so a config hot-reload (SetRoot/SetMode) can
	// safely race with in-flight transfer goroutines reading them; a swap
	// only ever takes effect for requests accepted after the swap, never
	// mid-transfer, since each transfer goroutine reads them once at
	// request time.
	rootMu sync.RWMutex
	root   string
	mode   AccessMode

	conn *net.UDPConn
}

// NewServer returns a Server rooted at root with the default timeout and
// retry budget.
func NewServer(root string, mode AccessMode) *Server {
	return &Server{root: root, mode: mode, Timeout: 5 * time.Second, MaxTimeouts: DefaultMaxTimeouts, Log: slog.Default()}
}

// SetRoot changes the served root directory; it takes effect for requests
// accepted after the call, never for a transfer already in progress.
func (s *Server) SetRoot(root string) {
	s.rootMu.Lock()
	s.root = root
	s.rootMu.Unlock()
}

// Root returns the currently served root directory.
func (s *Server) Root() string {
	s.rootMu.RLock()
	defer s.rootMu.RUnlock()
	return s.root
}

// SetMode changes the access policy; it takes effect for requests accepted
// after the call.
func (s *Server) SetMode(mode AccessMode) {
	s.rootMu.Lock()
	s.mode = mode
	s.rootMu.Unlock()
}

// Mode returns the currently enforced access policy.
func (s *Server) Mode() AccessMode {
	s.rootMu.RLock()
	defer s.rootMu.RUnlock()
	return s.mode
}

func (s *Server) maxTimeouts() int {
	if s.MaxTimeouts < 1 {
		return 1
	}
	return s.MaxTimeouts
}

func (s *Server) logger() *slog.Logger {
	if s.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Log
}

// ListenAndServe binds addr (defaulting the port to DefaultPort) and serves
// requests until ctx is cancelled or a fatal socket error occurs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	host, port, err := splitHostPort(addr, DefaultPort)
	if err != nil {
		return neterr.New(neterr.InvalidArgument, "invalid TFTP listen address", err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return neterr.New(neterr.Io, "resolve TFTP listen address", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return neterr.New(neterr.Io, "bind TFTP listen socket", err)
	}
	s.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 4+SegmentSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return neterr.New(neterr.Io, "TFTP server read", err)
		}
		pkt, err := Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		if pkt.Opcode != OpRRQ && pkt.Opcode != OpWRQ {
			continue
		}
		req := pkt.Request
		client := from
		go s.handle(ctx, req, client)
	}
}

func (s *Server) handle(ctx context.Context, req *RequestPacket, client *net.UDPAddr) {
	log := s.logger().With("peer", client.String(), "file", req.Filename, "opcode", req.Opcode)

	path, err := s.resolve(req.Filename)
	if err != nil {
		log.Warn("rejected TFTP request", "reason", err)
		s.sendErrorTo(client, ErrAccessViolation, err.Error())
		return
	}

	mode := s.Mode()
	if req.Opcode == OpRRQ && mode == WriteOnly {
		s.sendErrorTo(client, ErrAccessViolation, "server is write-only")
		return
	}
	if req.Opcode == OpWRQ && mode == ReadOnly {
		s.sendErrorTo(client, ErrAccessViolation, "server is read-only")
		return
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		log.Error("failed to open transfer socket", "error", err)
		return
	}
	defer conn.Close()

	var total int64
	if req.Opcode == OpRRQ {
		total, err = s.serveRead(conn, client, path, req.Mode)
	} else {
		total, err = s.serveWrite(conn, client, path, req.Mode)
	}
	if err != nil {
		log.Warn("TFTP transfer ended with error", "error", err, "bytes", total)
		return
	}
	log.Info("TFTP transfer complete", "bytes", humanize.Bytes(uint64(total)))
}

func (s *Server) serveRead(conn *net.UDPConn, client *net.UDPAddr, path string, mode Mode) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		s.sendErrorTo(client, ErrFileNotFound, err.Error())
		return 0, neterr.New(neterr.Policy, "open requested file", err)
	}
	defer f.Close()

	in := io.Reader(f)
	if mode == ModeNetASCII {
		in = newNetASCIIReader(f)
	}

	var total int64
	var block uint16
	timeouts := 0
	buf := make([]byte, 4)

	data, err := readChunk(in)
	if err != nil {
		return 0, neterr.New(neterr.Io, "read source file", err)
	}
	block = 1
	if err := s.sendTo(conn, client, MarshalData(&DataPacket{Block: block, Data: data})); err != nil {
		return 0, err
	}

	for {
		conn.SetReadDeadline(time.Now().Add(s.Timeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				timeouts++
				if timeouts >= s.maxTimeouts() {
					return total, neterr.New(neterr.Timeout, "TFTP server: client stopped acking", nil)
				}
				_ = s.sendTo(conn, client, MarshalData(&DataPacket{Block: block, Data: data}))
				continue
			}
			return total, neterr.New(neterr.Io, "TFTP server read", err)
		}
		timeouts = 0
		if !sameAddr(from, client) {
			_ = s.sendErrorTo(from, ErrUnknownTID, "unexpected transfer ID")
			continue
		}
		pkt, err := Unmarshal(buf[:n])
		if err != nil || pkt.Opcode != OpACK {
			continue
		}
		switch pkt.Ack.Block {
		case block:
			total += int64(len(data))
			if len(data) < SegmentSize {
				return total, nil
			}
			block++
			data, err = readChunk(in)
			if err != nil {
				return total, neterr.New(neterr.Io, "read source file", err)
			}
			if err := s.sendTo(conn, client, MarshalData(&DataPacket{Block: block, Data: data})); err != nil {
				return total, err
			}
		case block - 1:
			_ = s.sendTo(conn, client, MarshalData(&DataPacket{Block: block, Data: data}))
		}
	}
}

func (s *Server) serveWrite(conn *net.UDPConn, client *net.UDPAddr, path string, mode Mode) (int64, error) {
	if _, err := os.Stat(path); err == nil {
		s.sendErrorTo(client, ErrFileExists, "file already exists")
		return 0, neterr.New(neterr.Policy, "file already exists", nil)
	}
	f, err := os.Create(path)
	if err != nil {
		s.sendErrorTo(client, ErrAccessViolation, err.Error())
		return 0, neterr.New(neterr.Policy, "create destination file", err)
	}
	defer f.Close()

	out := io.Writer(f)
	var decoder *netASCIIDecoder
	if mode == ModeNetASCII {
		decoder = newNetASCIIDecoder(f)
		out = decoder
	}

	if err := s.sendTo(conn, client, MarshalAck(&AckPacket{Block: 0})); err != nil {
		return 0, err
	}

	var total int64
	var lastBlock uint16
	timeouts := 0
	buf := make([]byte, 4+SegmentSize)

	for {
		conn.SetReadDeadline(time.Now().Add(s.Timeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				timeouts++
				if timeouts >= s.maxTimeouts() {
					return total, neterr.New(neterr.Timeout, "TFTP server: client stopped sending", nil)
				}
				_ = s.sendTo(conn, client, MarshalAck(&AckPacket{Block: lastBlock}))
				continue
			}
			return total, neterr.New(neterr.Io, "TFTP server read", err)
		}
		timeouts = 0
		if !sameAddr(from, client) {
			_ = s.sendErrorTo(from, ErrUnknownTID, "unexpected transfer ID")
			continue
		}
		pkt, err := Unmarshal(buf[:n])
		if err != nil || pkt.Opcode != OpDATA {
			continue
		}
		d := pkt.Data
		switch {
		case d.Block == lastBlock+1:
			if _, err := out.Write(d.Data); err != nil {
				return total, neterr.New(neterr.Io, "write destination file", err)
			}
			total += int64(len(d.Data))
			lastBlock = d.Block
			if err := s.sendTo(conn, client, MarshalAck(&AckPacket{Block: lastBlock})); err != nil {
				return total, err
			}
			if len(d.Data) < SegmentSize {
				if decoder != nil {
					if err := decoder.Flush(); err != nil {
						return total, neterr.New(neterr.Io, "flush destination file", err)
					}
				}
				return total, nil
			}
		case d.Block == lastBlock:
			_ = s.sendTo(conn, client, MarshalAck(&AckPacket{Block: lastBlock}))
		}
	}
}

// resolve joins name onto the server root and rejects any result that
// would escape it, whether via ".." segments or an absolute path.
func (s *Server) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", ErrPathEscape
	}
	root := s.Root()
	full := filepath.Join(root, name)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return full, nil
}

func (s *Server) sendTo(conn *net.UDPConn, addr *net.UDPAddr, datagram []byte) error {
	if _, err := conn.WriteToUDP(datagram, addr); err != nil {
		return neterr.New(neterr.Io, "TFTP server write", err)
	}
	return nil
}

// sendErrorTo sends an ERROR packet to addr from a freshly bound ephemeral
// port, never from the listening socket: a client rejects a first reply
// that comes from the well-known port it contacted.
func (s *Server) sendErrorTo(addr *net.UDPAddr, code ErrorCode, msg string) error {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.WriteToUDP(MarshalError(&ErrorPacket{Code: code, Message: msg}), addr)
	return err
}
