package tftp

import (
	"bytes"
	"context"
	"crypto/rand"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

func startTestServer(root string, mode AccessMode) (addr string, cancel func()) {
	srv := NewServer(root, mode)
	srv.Log = nil

	ctx, cancelCtx := context.WithCancel(context.Background())
	go srv.ListenAndServe(ctx, "127.0.0.1:0")

	deadline := time.Now().Add(2 * time.Second)
	for srv.conn == nil {
		if time.Now().After(deadline) {
			panic("server never bound its socket")
		}
		time.Sleep(time.Millisecond)
	}
	return srv.conn.LocalAddr().String(), cancelCtx
}

var _ = Describe("Client/Server round trip", func() {
	// drives a real client against a real server over loopback UDP with a
	// 1025-byte file: two full 512-byte DATA blocks plus a final 1-byte
	// block, confirming the short-final-DATA EOF signal fires exactly at
	// the block boundary, and that BytesTransferred tracks the transfer.
	It("uploads then downloads the same content, with BytesTransferred tracking progress", func() {
		root := GinkgoT().TempDir()
		payload := make([]byte, 1025)
		_, err := rand.Read(payload)
		Expect(err).NotTo(HaveOccurred())

		addr, cancel := startTestServer(root, ReadWrite)
		defer cancel()

		client := NewClient()
		client.Timeout = 2 * time.Second

		sendCtx, sendCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer sendCancel()
		n, err := client.Send(sendCtx, addr, "uploaded.bin", ModeOctet, bytes.NewReader(payload))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(len(payload))))
		Expect(client.BytesTransferred()).To(Equal(int64(len(payload))))

		var out bytes.Buffer
		recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer recvCancel()
		n, err = client.Receive(recvCtx, addr, "uploaded.bin", ModeOctet, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(len(payload))))
		Expect(client.BytesTransferred()).To(Equal(int64(len(payload))))
		Expect(out.Bytes()).To(Equal(payload))
	})

	It("reports a RemoteError for a missing file", func() {
		root := GinkgoT().TempDir()
		addr, cancel := startTestServer(root, ReadWrite)
		defer cancel()

		client := NewClient()
		client.Timeout = 2 * time.Second
		qctx, qcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer qcancel()

		var out bytes.Buffer
		_, err := client.Receive(qctx, addr, "does-not-exist.bin", ModeOctet, &out)
		Expect(err).To(HaveOccurred())
		re, ok := err.(*RemoteError)
		Expect(ok).To(BeTrue(), "expected a *RemoteError, got %v (%T)", err, err)
		Expect(re.Code).To(Equal(ErrFileNotFound))
	})

	It("rejects a write against a read-only server", func() {
		root := GinkgoT().TempDir()
		addr, cancel := startTestServer(root, ReadOnly)
		defer cancel()

		client := NewClient()
		client.Timeout = 2 * time.Second
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		_, err := client.Send(ctx, addr, "anything.bin", ModeOctet, bytes.NewReader([]byte("x")))
		Expect(err).To(HaveOccurred())
		re, ok := err.(*RemoteError)
		Expect(ok).To(BeTrue(), "expected a *RemoteError, got %v (%T)", err, err)
		Expect(re.Code).To(Equal(ErrAccessViolation))
	})
})

var _ = Describe("Transfer-ID binding", func() {
	// RFC 1350 requires a fresh TID per transfer: a first reply from the
	// server's original well-known port (rather than a newly allocated
	// one) indicates a misbehaving or spoofing server and must be
	// rejected instead of silently bound as the transfer's TID.
	It("rejects a first reply whose source port matches the well-known port contacted", func() {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			buf := make([]byte, 2048)
			for {
				conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				n, from, err := conn.ReadFromUDP(buf)
				if err != nil {
					return
				}
				pkt, err := Unmarshal(buf[:n])
				if err != nil {
					continue
				}
				if pkt.Opcode == OpRRQ {
					// Misbehaves: replies from the same port the request was
					// sent to instead of allocating a fresh TID.
					conn.WriteToUDP(MarshalData(&DataPacket{Block: 1, Data: []byte("x")}), from)
				}
			}
		}()

		client := NewClient()
		client.Timeout = 500 * time.Millisecond
		client.MaxTimeouts = 1
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var out bytes.Buffer
		_, err = client.Receive(ctx, conn.LocalAddr().String(), "file.bin", ModeOctet, &out)
		Expect(err).To(HaveOccurred())
		Expect(neterr.Is(err, neterr.Protocol)).To(BeTrue(), "got %v (%T)", err, err)

		conn.Close()
		<-done
	})
})
